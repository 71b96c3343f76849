package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	imageverdict "github.com/menta2k/image-verdict"
	"github.com/menta2k/image-verdict/internal/config"
	"github.com/menta2k/image-verdict/internal/logging"
	"github.com/menta2k/image-verdict/internal/utils"
	"github.com/menta2k/image-verdict/pkg/aidetect"
	"github.com/menta2k/image-verdict/pkg/gemini"
	"github.com/menta2k/image-verdict/pkg/llamacpp"
	"github.com/menta2k/image-verdict/pkg/ollama"
	"github.com/menta2k/image-verdict/pkg/oracle"
	"github.com/menta2k/image-verdict/pkg/types"
)

// CLI flags
var (
	backendFlag     string
	modelFlag       string
	ollamaURLFlag   string
	llamaURLFlag    string
	detectorURLFlag string
	detectorKeyFlag string
	timeoutFlag     int
	configFlag      string
	outputFlag      string
	verboseFlag     bool
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "image-verdict [image path, directory or URL]",
	Short: "Decide whether an image is camera-original, AI-generated, or AI-modified",
	Long: `Image Verdict extracts forensic signals from an image (EXIF provenance,
noise statistics, pixel artifacts, JPEG error levels), consults a vision
model and an optional AI-generation detector, and fuses everything into a
single conservative authenticity verdict.

The verdict is printed as JSON. A definitive label is only emitted when
multiple signals corroborate it; everything else comes back "uncertain".
Passing a directory analyzes every image inside it recursively.

Examples:
  image-verdict photo.jpg
  image-verdict https://example.com/image.png
  image-verdict ./photos/ --output verdicts/
  image-verdict --backend ollama --model qwen2.5vl:7b photo.jpg
  image-verdict --backend gemini photo.jpg   # needs GEMINI_API_KEY
  image-verdict --detector-url http://localhost:9090 photo.jpg
  image-verdict --config ~/.config/image-verdict/config.json photo.jpg`,
	Args: cobra.ExactArgs(1),
	Run:  runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&backendFlag, "backend", "b", "", "vision backend: ollama, llamacpp or gemini")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", "", "vision model name")
	rootCmd.Flags().StringVar(&ollamaURLFlag, "ollama-url", "", "Ollama server URL")
	rootCmd.Flags().StringVar(&llamaURLFlag, "llama-url", "", "llama.cpp server URL")
	rootCmd.Flags().StringVar(&detectorURLFlag, "detector-url", "", "AI-generation detector service URL")
	rootCmd.Flags().StringVar(&detectorKeyFlag, "detector-api-key", "", "API key for the detector service")
	rootCmd.Flags().IntVar(&timeoutFlag, "timeout", 0, "oracle call timeout in seconds")
	rootCmd.Flags().StringVarP(&configFlag, "config", "c", "", "path to JSON config file")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "also write the verdict JSON to this file (directory in batch mode)")
	rootCmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	_ = godotenv.Load() // allow .env for local runs
	logging.Init()
	if verboseFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	vision, err := buildVisionClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend.Provider).Msg("failed to create vision client")
	}

	var detector oracle.GenAIDetector
	if cfg.Detector.URL != "" {
		client, err := aidetect.NewClient(cfg.Detector.URL, cfg.Detector.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create detector client")
		}
		detector = client.WithTimeout(time.Duration(cfg.Backend.TimeoutSeconds) * time.Second)
	}

	engineConfig := imageverdict.DefaultConfig()
	engineConfig.Payload.MaxPayloadBytes = cfg.Payload.MaxPayloadMB << 20
	engineConfig.Payload.MaxDimension = cfg.Payload.MaxDimension
	engineConfig.Payload.JPEGQuality = cfg.Payload.JPEGQuality

	engine := imageverdict.NewWithConfig(engineConfig, vision, detector)

	source := args[0]
	if utils.DirExists(source) {
		runBatch(ctx, engine, source)
		return
	}

	verdict, err := engine.ClassifySource(ctx, source)
	if err != nil {
		log.Fatal().Err(err).Str("source", source).Msg("classification failed")
	}

	js, err := json.MarshalIndent(verdict, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode verdict")
	}
	fmt.Println(string(js))

	if outputFlag != "" {
		if dir := filepath.Dir(outputFlag); dir != "." {
			if err := utils.EnsureDir(dir); err != nil {
				log.Fatal().Err(err).Str("dir", dir).Msg("failed to create output directory")
			}
		}
		if err := os.WriteFile(outputFlag, js, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", outputFlag).Msg("failed to write verdict file")
		}
		log.Info().Str("path", outputFlag).Msg("verdict written")
	}
}

// runBatch classifies every image under dir and prints one line per file.
// With --output set, each verdict is also written as JSON into that
// directory.
func runBatch(ctx context.Context, engine *imageverdict.Engine, dir string) {
	files, err := utils.ListImageFiles(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("failed to list images")
	}
	if len(files) == 0 {
		log.Fatal().Str("dir", dir).Msg("no image files found")
	}
	if outputFlag != "" {
		if err := utils.EnsureDir(outputFlag); err != nil {
			log.Fatal().Err(err).Str("dir", outputFlag).Msg("failed to create output directory")
		}
	}

	counts := make(map[types.Label]int)
	failed := 0
	for _, file := range files {
		verdict, err := engine.ClassifySource(ctx, file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("classification failed")
			failed++
			continue
		}
		counts[verdict.Label]++
		fmt.Printf("%-12s %3d%%  %9s  %s\n",
			verdict.Label, verdict.Confidence,
			utils.FormatFileSize(int64(verdict.Stats.SizeBytes)), file)

		if outputFlag != "" {
			js, err := json.MarshalIndent(verdict, "", "  ")
			if err != nil {
				log.Fatal().Err(err).Msg("failed to encode verdict")
			}
			path := utils.VerdictFilename(file, outputFlag)
			if err := os.WriteFile(path, js, 0o644); err != nil {
				log.Fatal().Err(err).Str("path", path).Msg("failed to write verdict file")
			}
		}
	}

	fmt.Printf("\n%d images: %d original, %d ai_generated, %d ai_modified, %d uncertain, %d failed\n",
		len(files),
		counts[types.LabelOriginal], counts[types.LabelAIGenerated],
		counts[types.LabelAIModified], counts[types.LabelUncertain], failed)
}

// resolveConfig layers configuration sources: defaults, then the config
// file, then environment variables, then explicit flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configFlag != "" {
		if !utils.FileExists(configFlag) {
			return nil, fmt.Errorf("config file not found: %s", configFlag)
		}
		loaded, err := config.LoadFromFile(configFlag)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.ApplyEnv()

	if cmd.Flags().Changed("backend") {
		cfg.Backend.Provider = backendFlag
	}
	if cmd.Flags().Changed("model") {
		cfg.Backend.Model = modelFlag
	}
	if cmd.Flags().Changed("ollama-url") {
		cfg.Backend.OllamaURL = ollamaURLFlag
	}
	if cmd.Flags().Changed("llama-url") {
		cfg.Backend.LlamaURL = llamaURLFlag
	}
	if cmd.Flags().Changed("detector-url") {
		cfg.Detector.URL = detectorURLFlag
	}
	if cmd.Flags().Changed("detector-api-key") {
		cfg.Detector.APIKey = detectorKeyFlag
	}
	if cmd.Flags().Changed("timeout") && timeoutFlag > 0 {
		cfg.Backend.TimeoutSeconds = timeoutFlag
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildVisionClient creates the classifier for the configured backend.
func buildVisionClient(ctx context.Context, cfg *config.Config) (oracle.VisionClassifier, error) {
	timeout := time.Duration(cfg.Backend.TimeoutSeconds) * time.Second

	switch cfg.Backend.Provider {
	case "ollama":
		client, err := ollama.NewClient(cfg.Backend.OllamaURL, cfg.Backend.Model)
		if err != nil {
			return nil, err
		}
		return client.WithTimeout(timeout), nil
	case "llamacpp":
		client, err := llamacpp.NewClient(cfg.Backend.LlamaURL, cfg.Backend.Model)
		if err != nil {
			return nil, err
		}
		return client.WithTimeout(timeout), nil
	case "gemini":
		client, err := gemini.NewClient(ctx, cfg.Backend.GeminiAPIKey, cfg.Backend.Model)
		if err != nil {
			return nil, err
		}
		return client.WithTimeout(timeout), nil
	default:
		return nil, fmt.Errorf("unknown backend: %s (use ollama, llamacpp or gemini)", cfg.Backend.Provider)
	}
}
