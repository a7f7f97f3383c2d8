package cli

import (
	"fmt"
	"image/png"
	"os"
	"text/tabwriter"

	"facetrack/internal/frame"
	"facetrack/internal/render"
	"facetrack/internal/tracker"

	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Run the face detector once on a still image",
	Long: `Run the configured face detector on a still image and print the boxes.

Examples:
  facetrack detect portrait.jpg
  facetrack detect group.png --detector pigo --cascade facefinder --annotate boxes.png`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("detector", "", "Detector backend (haar or pigo)")
	detectCmd.Flags().String("cascade", "", "Cascade file name or path")
	detectCmd.Flags().Int("min-size", 0, "Minimum face side in pixels")
	detectCmd.Flags().String("preprocess", "", "Frame preprocessing (opencv or go)")
	detectCmd.Flags().String("annotate", "", "Write the image with detections drawn to this PNG")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	overrideString(cmd, "detector", &cfg.Detector.Backend)
	overrideString(cmd, "cascade", &cfg.Detector.Cascade)
	overrideString(cmd, "preprocess", &cfg.Tracker.Preprocess)
	overrideInt(cmd, "min-size", &cfg.Detector.MinSize)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	det, err := openDetector(cfg, log)
	if err != nil {
		return err
	}
	defer det.Close()

	pre, err := newPreprocessor(cfg)
	if err != nil {
		return err
	}
	img, err := frame.Load(args[0])
	if err != nil {
		return err
	}
	gray, err := pre.Preprocess(img)
	if err != nil {
		return err
	}
	faces, err := det.Detect(gray, cfg.TrackerConfig().Detect)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tX\tY\tWIDTH\tHEIGHT")
	for i, f := range faces {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\n", i, f.X, f.Y, f.Width, f.Height)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d face(s) in %s\n", len(faces), args[0])

	out := mustGetString(cmd, "annotate")
	if out == "" {
		return nil
	}
	annotated := render.Annotate(img, tracker.Event{Kind: tracker.EventNoFace, State: tracker.StateDetect, Faces: faces})
	file, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", out, err)
	}
	if err := png.Encode(file, annotated); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", out, err)
	}
	return file.Close()
}
