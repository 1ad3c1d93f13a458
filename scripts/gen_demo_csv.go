package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var (
	sellers  = []string{"Ana", "Luis", "Marta", "Carlos", "Sofía", "Jorge"}
	cities   = []string{"Medellín", "Bogotá", "Cali", "Barranquilla"}
	products = []string{"Café", "Arroz", "Panela", "Chocolate", "Arepa", "Queso", "Leche"}
	prices   = map[string]float64{
		"Café": 2500, "Arroz": 3000, "Panela": 1800, "Chocolate": 4200,
		"Arepa": 1500, "Queso": 6500, "Leche": 3200,
	}
)

// Rows are derived from their index so the file is identical on every run.
func main() {
	out := "data/ventas_demo.csv"
	rows := 240
	if len(os.Args) > 1 {
		out = os.Args[1]
	}
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil || n <= 0 {
			fmt.Println("Usage: gen_demo_csv [output.csv] [rows]")
			os.Exit(1)
		}
		rows = n
	}

	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		panic(err)
	}
	f, err := os.Create(out)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "vendedor", "sede", "producto", "cantidad", "precio", "fecha"}); err != nil {
		panic(err)
	}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < rows; i++ {
		product := products[(i*7+i/len(products))%len(products)]
		record := []string{
			strconv.Itoa(i + 1),
			sellers[i%len(sellers)],
			cities[(i/3)%len(cities)],
			product,
			strconv.Itoa(1 + (i*13)%20),
			strconv.FormatFloat(prices[product], 'f', 0, 64),
			start.AddDate(0, 0, (i*5)%366).Format("2006-01-02"),
		}
		if err := w.Write(record); err != nil {
			panic(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		panic(err)
	}

	fmt.Printf("Wrote %d rows to %s\n", rows, out)
}
