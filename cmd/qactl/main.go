package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "qactl",
		Usage: "Operate the hybrid retrieval QA corpus",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override LOG_LEVEL (debug, info, warn, error)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Extract, chunk and store the sources listed in a manifest",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "manifest",
						Aliases:  []string{"m"},
						Usage:    "YAML or JSON list of {title, url, path}",
						Required: true,
					},
				},
			},
			{
				Name:   "build-index",
				Usage:  "Embed every chunk and write the vector and keyword snapshots",
				Action: buildIndexCommand,
			},
			{
				Name:   "verify",
				Usage:  "Load the indices and check they enumerate the same chunks",
				Action: verifyCommand,
			},
			{
				Name:   "ask",
				Usage:  "Answer one question",
				Action: askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "q",
						Usage:    "Question text",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "k",
						Aliases: []string{"top-k"},
						Usage:   "Number of contexts (0 uses QA_TOP_K)",
					},
					&cli.IntFlag{
						Name:  "candidate-k",
						Usage: "Hybrid shortlist size (0 uses QA_CANDIDATE_K)",
					},
					&cli.Float64Flag{
						Name:  "alpha",
						Usage: "Weight of the cosine score in hybrid mode",
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "semantic or hybrid (empty uses QA_DEFAULT_MODE)",
					},
					&cli.BoolFlag{
						Name:  "nats",
						Usage: "Send the question to a running worker over NATS",
					},
				},
			},
			{
				Name:   "eval",
				Usage:  "Compare semantic and hybrid top-1 passages for a question list",
				Action: evalCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "questions",
						Usage:    `JSON or YAML list of {"q": "..."}`,
						Required: true,
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Where to write the results",
						Value: "results.json",
					},
				},
			},
		},
	}
}
