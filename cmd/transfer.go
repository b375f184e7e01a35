package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/branch-canvas/internal/session"
)

var (
	transferSession string
	exportOutput    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save a session's canvas to a JSON file",
	Long: `Writes the canvas of a session to a JSON file that can be loaded again
with import or through the browser. Without --output the file name is
prompted for; ".json" is appended when missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		sid, err := resolveSession(ctx, store, transferSession)
		if err != nil {
			return err
		}
		snap, err := store.LoadCanvas(ctx, sid)
		if err != nil {
			return err
		}
		if snap == nil {
			return fmt.Errorf("session %s has no saved canvas", sid)
		}
		data, err := snap.Encode()
		if err != nil {
			return err
		}

		name := exportOutput
		if name == "" {
			p := promptui.Prompt{
				Label:   "Enter a filename for your canvas",
				Default: session.DefaultExportName,
			}
			if name, err = p.Run(); err != nil {
				// Cancelling the prompt saves nothing.
				if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
					return nil
				}
				return fmt.Errorf("filename prompt: %w", err)
			}
		}
		path := session.ExportFileName(name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("Saved %d node(s) from session %s to %s\n", len(snap.Nodes), sid, path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace a session's canvas with a saved JSON file",
	Long: `Loads a canvas file into a session, replacing its current canvas. A
running server keeps the canvas it already has in memory, so import while
the server is stopped or into a session it has not opened.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		snap, err := session.Import(data)
		if err != nil {
			return err
		}

		database, store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		sid, err := resolveSession(ctx, store, transferSession)
		if err != nil {
			return err
		}
		if err := store.SaveCanvas(ctx, sid, snap); err != nil {
			return err
		}
		fmt.Printf("Loaded %d node(s) into session %s\n", len(snap.Nodes), sid)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, importCmd} {
		c.Flags().StringVar(&transferSession, "session", "", "session id (defaults to the most recently used)")
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file name")
	rootCmd.AddCommand(exportCmd, importCmd)
}
