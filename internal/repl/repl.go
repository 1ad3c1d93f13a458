// Package repl provides the interactive chat loop of ventas-cli.
//
// On Windows and WSL the go-prompt library and multiple signal handlers can race
// on exit and panic with "close of closed channel". Exit handling is guarded by
// a mutex and uses os.Exit instead of panic.
package repl

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	prompt "github.com/c-bata/go-prompt"

	"ventas-cli/internal/command"
)

var (
	// Global flag to track if we're in the exit process
	exiting   = false
	exitMutex sync.Mutex
)

// ExampleQuestions are offered by the completer.
var ExampleQuestions = []string{
	"¿Cuál es el producto más vendido?",
	"¿Quién es el vendedor con más ventas?",
	"top 5 productos más vendidos en Medellín",
	"total de ventas por sede",
	"total de ventas por sede en gráfico de barras",
	"ventas por mes en gráfico de líneas",
	"participación por producto",
	"ticket promedio en Bogotá",
	"exporta el total de ventas por vendedor a excel",
	"muestra las ventas de 2024",
}

// Start runs the prompt until the user types an exit word.
func Start(handler *command.Handler) {
	if handler.State == nil {
		handler.State = &command.ReplState{}
	}

	fmt.Println("Bienvenido a ventas-cli. Pregunta sobre las ventas en español.")
	fmt.Println("Escribe 'help' para ver los comandos y 'salir' para terminar.")
	if handler.Agent == nil {
		fmt.Println("Agente LLM no configurado: se responde solo con reglas.")
	}

	p := prompt.New(
		func(in string) {
			if !handler.Execute(in) {
				exitMutex.Lock()
				if exiting {
					exitMutex.Unlock()
					return
				}
				exiting = true
				exitMutex.Unlock()

				fmt.Println("Hasta luego.")
				if isWSL() {
					fixWSLTerminal()
				}
				os.Exit(0)
			}
		},
		completer,
		prompt.OptionLivePrefix(func() (string, bool) {
			return livePrefix(handler.State), true
		}),
		prompt.OptionTitle("ventas-cli"),
	)

	defer func() {
		if r := recover(); r != nil {
			if r == "exit" {
				return
			}
			panic(r)
		}
	}()

	p.Run()
}

func livePrefix(state *command.ReplState) string {
	return fmt.Sprintf("ventas[%s]> ", state.ModeLabel())
}

// isWSL checks if we're running in Windows Subsystem for Linux
func isWSL() bool {
	return os.Getenv("WSL_DISTRO_NAME") != "" || os.Getenv("WSLENV") != ""
}

// isWindows checks if we're running on Windows
func isWindows() bool {
	return runtime.GOOS == "windows"
}

// fixWSLTerminal restores terminal input visibility for WSL
func fixWSLTerminal() {
	cmd := exec.Command("reset")
	_ = cmd.Run()

	cmd = exec.Command("stty", "echo")
	_ = cmd.Run()

	fmt.Print("\033[?25h") // Show cursor
	fmt.Print("\033[0m")   // Reset attributes
}

func suggestions() []prompt.Suggest {
	s := []prompt.Suggest{
		{Text: "help", Description: "Muestra la ayuda"},
		{Text: "sql", Description: "sql <pregunta> Muestra la consulta generada"},
		{Text: "schema", Description: "Describe la tabla de ventas"},
		{Text: "agent on", Description: "Responde con el agente LLM"},
		{Text: "agent off", Description: "Responde solo con reglas"},
		{Text: "cache", Description: "Estadísticas de la caché"},
	}
	for _, w := range command.ExitWords {
		s = append(s, prompt.Suggest{Text: w, Description: "Termina la sesión"})
	}
	for _, q := range ExampleQuestions {
		s = append(s, prompt.Suggest{Text: q, Description: "Pregunta de ejemplo"})
	}
	return s
}

func completer(d prompt.Document) []prompt.Suggest {
	text := d.TextBeforeCursor()
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return prompt.FilterHasPrefix(suggestions(), text, true)
}
