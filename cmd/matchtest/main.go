// Command matchtest builds a face template from one image and matches it
// against another, printing the best location and score.
package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"time"

	"facetrack/internal/cvmatch"
	"facetrack/internal/frame"
	"facetrack/internal/template"
	"facetrack/pkg/geometry"
)

func main() {
	refPath := flag.String("ref", "", "Image the template is cut from")
	targetPath := flag.String("target", "", "Image to search (defaults to -ref)")
	x := flag.Int("x", 0, "Template box left")
	y := flag.Int("y", 0, "Template box top")
	w := flag.Int("w", 64, "Template box width")
	h := flag.Int("h", 64, "Template box height")
	size := flag.Int("size", template.DefaultSize, "Template side length")
	threshold := flag.Float64("threshold", template.DefaultThreshold, "Match threshold")
	useCV := flag.Bool("opencv", false, "Also run OpenCV matchTemplate and compare")
	flag.Parse()

	if *refPath == "" {
		fmt.Println("Usage: matchtest -ref <image> [-target <image>] -x X -y Y [-w 64 -h 64] [-opencv]")
		os.Exit(1)
	}
	if *targetPath == "" {
		*targetPath = *refPath
	}

	ref := mustGray(*refPath)
	target := mustGray(*targetPath)
	box := geometry.NewBox(*x, *y, *w, *h)
	fmt.Printf("Reference: %s %dx%d\n", *refPath, ref.Bounds().Dx(), ref.Bounds().Dy())
	fmt.Printf("Target:    %s %dx%d\n", *targetPath, target.Bounds().Dx(), target.Bounds().Dy())
	fmt.Printf("Box:       %s -> %dx%d template\n", box, *size, *size)
	fmt.Printf("Threshold: %.2f\n\n", *threshold)

	type backend struct {
		name string
		c    template.Correlator
	}
	correlators := []backend{{"ncc", template.NCC{}}}
	if *useCV {
		cv := cvmatch.New()
		defer cv.Close()
		correlators = append(correlators, backend{"opencv", cv})
	}

	fmt.Printf("%-8s %-20s %8s %8s %10s\n", "Backend", "Box", "Score", "Match", "Time")
	for _, entry := range correlators {
		m := template.NewManager(template.Config{Size: *size, Threshold: threshold, Correlator: entry.c})
		if err := m.Build(ref, box); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build template: %v\n", err)
			os.Exit(1)
		}
		start := time.Now()
		res, err := m.Match(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: match failed: %v\n", entry.name, err)
			os.Exit(1)
		}
		if !res.Attempted {
			fmt.Printf("%-8s target is smaller than the template\n", entry.name)
			continue
		}
		fmt.Printf("%-8s %-20s %8.4f %8v %10s\n", entry.name, res.Box, res.Score, res.Matched, time.Since(start).Round(time.Microsecond))
	}
}

func mustGray(path string) *image.Gray {
	img, err := frame.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	gray, err := frame.Preprocess(img)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	return gray
}
