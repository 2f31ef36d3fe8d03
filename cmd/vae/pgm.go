package main

import (
	"bufio"
	"fmt"
	"os"
)

// writePGM writes a grayscale image as a binary PGM (P5) file.
//
// Pixel values are expected in [0, 1] and are scaled to 0-255. Values
// outside the range are clamped.
func writePGM(path string, pixels []float32, rows, cols int) error {
	if len(pixels) != rows*cols {
		return fmt.Errorf("pixel count %d does not match %dx%d image", len(pixels), rows, cols)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n255\n", cols, rows); err != nil {
		return err
	}

	for _, p := range pixels {
		if p < 0 {
			p = 0
		} else if p > 1 {
			p = 1
		}
		if err := w.WriteByte(byte(p*255.0 + 0.5)); err != nil {
			return err
		}
	}

	return w.Flush()
}
