package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/abhisek/codequiz/internal/config"
	"github.com/abhisek/codequiz/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Load reference material used to ground generated questions",
	Long: "ingest splits each text file into overlapping chunks, embeds them and stores them in MongoDB. " +
		"The file name selects the language tag (e.g. kotlin_guide.txt is tagged kotlin).",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.Load()
		if !cfg.Retrieval.Enabled() {
			return errors.New("QUIZ_MONGODB_URI is required for ingest")
		}
		if cfg.Retrieval.EmbeddingAPIKey == "" {
			return errors.New("QUIZ_EMBEDDING_API_KEY or OPENAI_API_KEY is required for ingest")
		}

		ingestCfg := retrieval.DefaultIngestConfig()
		ingestCfg.ChunkSize, _ = cmd.Flags().GetInt("chunk-size")
		ingestCfg.ChunkOverlap, _ = cmd.Flags().GetInt("chunk-overlap")
		ingestCfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
		replace, _ := cmd.Flags().GetBool("replace")

		client, chunks, err := connectChunkStore(ctx, cfg.Retrieval)
		if err != nil {
			return err
		}
		defer client.Disconnect(ctx)

		if err := chunks.InitializeIndexes(ctx); err != nil {
			glog.Warningf("%v", err)
		}

		embedder := retrieval.NewOpenAIEmbedder(cfg.Retrieval.EmbeddingAPIKey, cfg.Retrieval.EmbeddingBaseURL, cfg.Retrieval.EmbeddingModel)
		ingester := retrieval.NewIngester(embedder, chunks, ingestCfg)

		var total int
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}

			if replace {
				n, err := chunks.DeleteSource(ctx, filepath.Base(path))
				if err != nil {
					return err
				}
				glog.V(1).Infof("removed %d old chunks of %s", n, filepath.Base(path))
			}

			n, err := ingester.Ingest(ctx, path, string(data))
			if err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			fmt.Printf("%-40s  %5d chunks  (%s)\n", filepath.Base(path), n, retrieval.LanguageFromFilename(filepath.Base(path)))
			total += n
		}

		count, err := chunks.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("\nStored %d chunks from %d files; collection now holds %d.\n", total, len(args), count)
		return nil
	},
}

func init() {
	ingestCmd.Flags().Int("chunk-size", retrieval.DefaultChunkSize, "Chunk size in characters")
	ingestCmd.Flags().Int("chunk-overlap", retrieval.DefaultChunkOverlap, "Characters shared by consecutive chunks")
	ingestCmd.Flags().Int("batch-size", retrieval.DefaultIngestConfig().BatchSize, "Chunks embedded per request")
	ingestCmd.Flags().Bool("replace", false, "Delete existing chunks of each file before ingesting")
}
