package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/script-to-video/internal/app"
	"github.com/codebuildervaibhav/script-to-video/internal/config"
	"github.com/codebuildervaibhav/script-to-video/internal/render"
	"github.com/codebuildervaibhav/script-to-video/internal/storage"
	"github.com/codebuildervaibhav/script-to-video/internal/types"
)

var rootCmd = &cobra.Command{
	Use:   "render [script-file]",
	Short: "Render a narrated video from a text script",
	Long: `Render turns a text script into a narrated 1280x720 MP4. The script is read
from the given file, or from stdin when no file is named. Rendering uses the
same configuration file as the server.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet {
			log.SetOutput(io.Discard)
		}
	},
	RunE: runRender,
}

var (
	configPath string
	mode       string
	language   string
	slow       bool
	output     string
	record     bool
	quiet      bool
)

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "", "render mode: typewriter, slide (default from config)")
	rootCmd.Flags().StringVarP(&language, "lang", "l", "", "speech language code (default from config)")
	rootCmd.Flags().BoolVar(&slow, "slow", false, "slow narration")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output MP4 path (default: dated file under the output dir)")
	rootCmd.Flags().BoolVar(&record, "record", true, "record the render in the metadata database")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress log output")
}

// pipelineRunner is satisfied by *render.Pipeline.
type pipelineRunner interface {
	Run(ctx context.Context, job render.Job, deliver render.DeliverFunc) (*types.RenderResult, error)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	script, err := readScript(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	var slowFlag *bool
	if cmd.Flags().Changed("slow") {
		slowFlag = &slow
	}
	job, err := app.Defaults(cfg).Build("cli_"+uuid.New().String(), script, mode, language, slowFlag)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), render.OutcomeMessage(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *storage.MetadataDB
	if record {
		if db, err = storage.NewMetadataDB(cfg.Storage.Database); err != nil {
			log.Printf("WARNING: render will not be recorded: %v", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	components := app.Build(cfg)
	res, err := renderJob(ctx, components.Pipeline, db, storage.NewLocalStorage(cfg.Storage.OutputDir), job, output)

	fmt.Fprintln(cmd.OutOrStdout(), render.OutcomeMessage(err))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%.1fs, %d frames)\n", res.LocalPath, res.AudioDuration, res.Frames)
	return nil
}

// renderJob runs one job and copies the video to outPath, or into the dated
// output tree when outPath is empty. db may be nil.
func renderJob(ctx context.Context, p pipelineRunner, db *storage.MetadataDB, ls *storage.LocalStorage, job render.Job, outPath string) (*types.RenderResult, error) {
	if db != nil {
		if err := db.CreateRender(job.ID, types.SourceCLI, job.Mode, job.Language, job.Script); err != nil {
			log.Printf("WARNING: %v", err)
			db = nil
		} else if err := db.StartRender(job.ID); err != nil {
			log.Printf("WARNING: %v", err)
		}
	}

	deliver := func(ctx context.Context, res *types.RenderResult) error {
		if outPath == "" {
			path, err := ls.SaveVideo(res)
			if err != nil {
				return err
			}
			res.LocalPath = path
			return nil
		}
		if err := copyVideo(res.VideoPath, outPath); err != nil {
			return err
		}
		res.LocalPath = outPath
		return nil
	}

	res, err := p.Run(ctx, job, deliver)
	if db != nil {
		var dbErr error
		if err != nil {
			kind := types.ErrorKindInternal
			if render.IsEncoderError(err) {
				kind = types.ErrorKindEncoder
			}
			dbErr = db.FailRender(job.ID, kind, err.Error())
		} else {
			dbErr = db.CompleteRender(job.ID, res)
		}
		if dbErr != nil {
			log.Printf("WARNING: database save failed: %v", dbErr)
		}
	}
	return res, err
}

func readScript(stdin io.Reader, args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}

func copyVideo(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
