package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/config/file"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/encoder/ffmpeg"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/epub"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/segments/dir"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/state/sqlite"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driven/tts/httptts"
	"github.com/narrata-labs/narrata-cli/internal/adapters/driving/tui"
	"github.com/narrata-labs/narrata-cli/internal/core/domain"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driven"
	"github.com/narrata-labs/narrata-cli/internal/core/ports/driving"
	"github.com/narrata-labs/narrata-cli/internal/core/services"
	"github.com/narrata-labs/narrata-cli/internal/logger"
)

var (
	flagOutput    string
	flagSpeaker   string
	flagLanguage  string
	flagInstruct  string
	flagBitrate   string
	flagTitle     string
	flagAuthor    string
	flagEndpoints []string
	flagChunkSize int
	flagChunkGap  float64
	flagRetries   int
	flagKeepWAV   bool
	flagNoTUI     bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <book.epub>",
	Short: "Convert an EPUB into an M4B audiobook",
	Long: `Converts an EPUB into a chaptered M4B audiobook.

Each chapter is narrated through the configured text-to-speech
endpoints and saved as intermediate audio, then the chapters are
assembled and encoded into a single output file with chapter markers.
Re-running with the same output path resumes an interrupted run.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "output file (default: input name with .m4b)")
	convertCmd.Flags().StringVar(&flagSpeaker, "speaker", "", "voice name")
	convertCmd.Flags().StringVar(&flagLanguage, "language", "", "language hint")
	convertCmd.Flags().StringVar(&flagInstruct, "instruct", "", "style instruction for the voice")
	convertCmd.Flags().StringVar(&flagBitrate, "bitrate", "", "AAC bitrate, e.g. 64k or 128k")
	convertCmd.Flags().StringVar(&flagTitle, "title", "", "override the book title")
	convertCmd.Flags().StringVar(&flagAuthor, "author", "", "override the book author")
	convertCmd.Flags().StringSliceVar(&flagEndpoints, "endpoint", nil, "TTS endpoint URL, repeatable for multiple devices")
	convertCmd.Flags().IntVar(&flagChunkSize, "chunk-size", 0, "synthesis chunk size budget in bytes")
	convertCmd.Flags().Float64Var(&flagChunkGap, "gap", -1, "silence between chunks in seconds")
	convertCmd.Flags().IntVar(&flagRetries, "retries", -1, "synthesis retries per chunk")
	convertCmd.Flags().BoolVar(&flagKeepWAV, "keep-wav", false, "keep per-chapter WAV files after success")
	convertCmd.Flags().BoolVar(&flagNoTUI, "no-tui", false, "plain line output instead of the progress display")

	rootCmd.AddCommand(convertCmd)
}

// loadConfig merges the config file with the command flags.
func loadConfig(cmd *cobra.Command) (file.Config, error) {
	cfg, err := file.Load(flagConfigDir)
	if err != nil {
		return file.Config{}, err
	}

	if len(flagEndpoints) > 0 {
		cfg.TTS.Endpoints = flagEndpoints
	}
	if flagSpeaker != "" {
		cfg.TTS.Speaker = flagSpeaker
	}
	if flagLanguage != "" {
		cfg.TTS.Language = flagLanguage
	}
	if flagInstruct != "" {
		cfg.TTS.Instruct = flagInstruct
	}
	if flagBitrate != "" {
		cfg.Convert.Bitrate = flagBitrate
	}
	if cmd.Flags().Changed("chunk-size") {
		cfg.Convert.ChunkSize = flagChunkSize
	}
	if cmd.Flags().Changed("gap") {
		cfg.Convert.ChunkGap = flagChunkGap
	}
	if cmd.Flags().Changed("retries") {
		cfg.Convert.MaxRetries = flagRetries
	}
	if flagKeepWAV {
		cfg.Convert.KeepWAV = true
	}

	if err := cfg.Validate(); err != nil {
		return file.Config{}, err
	}
	return cfg, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	inputPath := args[0]
	outputPath := flagOutput
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".m4b"
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return convertBook(ctx, cmd, cfg, inputPath, outputPath)
}

// convertBook wires the adapters together and runs one conversion.
func convertBook(ctx context.Context, cmd *cobra.Command, cfg file.Config, inputPath, outputPath string) error {
	src, err := epub.Open(inputPath)
	if err != nil {
		return err
	}
	defer src.Close()

	configDir, err := file.ConfigDir(flagConfigDir)
	if err != nil {
		return err
	}

	runs, err := sqlite.NewStore(filepath.Join(configDir, "data"))
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	defer runs.Close()
	logger.Debug("Run ledger at %s", runs.Path())

	seg, err := dir.NewStore(workDirFor(cfg, configDir, outputPath))
	if err != nil {
		return fmt.Errorf("preparing work directory: %w", err)
	}

	synths := make([]driven.Synthesizer, 0, len(cfg.TTS.Endpoints))
	for _, endpoint := range cfg.TTS.Endpoints {
		var opts []httptts.Option
		if cfg.TTS.RequestsPerSecond > 0 {
			opts = append(opts, httptts.WithRateLimit(cfg.TTS.RequestsPerSecond, max(cfg.TTS.Burst, 1)))
		}
		synths = append(synths, httptts.NewClient(endpoint, opts...))
	}
	defer func() {
		for _, s := range synths {
			s.Close()
		}
	}()

	pipeline, err := services.NewPipeline(services.PipelineConfig{
		Synthesizers:      synths,
		Encoder:           ffmpeg.New(),
		Runs:              runs,
		Segments:          seg,
		ChunkSize:         cfg.Convert.ChunkSize,
		ChunkGap:          cfg.Convert.ChunkGap,
		MaxRetries:        cfg.Convert.MaxRetries,
		MinChapterChars:   cfg.Convert.MinChapterChars,
		Bitrate:           cfg.Convert.Bitrate,
		KeepIntermediates: cfg.Convert.KeepWAV,
	})
	if err != nil {
		return err
	}

	req := driving.ConvertRequest{
		Source:     src,
		OutputPath: outputPath,
		Voice: domain.Voice{
			Speaker:  cfg.TTS.Speaker,
			Language: cfg.TTS.Language,
			Instruct: cfg.TTS.Instruct,
		},
		TitleOverride:  flagTitle,
		AuthorOverride: flagAuthor,
	}

	var result *driving.ConvertResult
	if useTUI() {
		result, err = tui.RunConversion(ctx, pipeline, req)
	} else {
		req.Emit = plainEmitter(cmd)
		result, err = pipeline.Convert(ctx, req)
	}
	if err != nil {
		return err
	}

	if result.Resumed > 0 {
		cmd.Printf("Resumed %d previously synthesised chapter(s).\n", result.Resumed)
	}
	cmd.Printf("Wrote %s (%d chapters, %s)\n", result.OutputPath, result.Chapters, formatDuration(result.Duration))
	return nil
}

// workDirFor derives the intermediate directory for one output path.
func workDirFor(cfg file.Config, configDir, outputPath string) string {
	if cfg.Convert.WorkDir != "" {
		return cfg.Convert.WorkDir
	}
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	return filepath.Join(configDir, "work", stem)
}

// useTUI reports whether the interactive progress display should run.
func useTUI() bool {
	return !flagNoTUI && term.IsTerminal(int(os.Stdout.Fd()))
}

// plainEmitter prints one line per progress event. Events arrive from
// multiple synthesis workers, hence the lock.
func plainEmitter(cmd *cobra.Command) func(driving.ProgressEvent) {
	var mu sync.Mutex
	return func(ev driving.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		switch ev.Stage {
		case driving.StageExtract:
			if ev.ChapterCount > 0 {
				cmd.Printf("Extracted %d chapters\n", ev.ChapterCount)
			}
		case driving.StageSynthesize:
			logger.Debug("Synthesising chapter %d chunk %d/%d", ev.Chapter+1, ev.Chunk+1, ev.ChunkCount)
		case driving.StageAssemble:
			cmd.Printf("Chapter %d/%d done\n", ev.Chapter+1, ev.ChapterCount)
		case driving.StagePackage:
			cmd.Println("Encoding audiobook...")
		}
	}
}

// formatDuration renders seconds as h:mm:ss.
func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := total % 3600 / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
