package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/google/uuid"
	"github.com/muhammadolammi/interviewworker/internal/database"
	"github.com/muhammadolammi/interviewworker/internal/interview"
	"github.com/muhammadolammi/interviewworker/internal/llm"
	"github.com/muhammadolammi/interviewworker/internal/logging"
	"github.com/muhammadolammi/interviewworker/internal/roles"
	"github.com/streadway/amqp"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level: debug, info, warn, error",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "info",
		},
		&cli.StringFlag{
			Name:    "roles-file",
			Usage:   "YAML file replacing the built-in interviewer roles",
			EnvVars: []string{"ROLES_FILE"},
		},
	}
}

// setup builds the logger and role catalog shared by every command.
func setup(c *cli.Context) (*zap.Logger, *roles.Catalog, error) {
	logger, err := logging.New(c.String("log-level"))
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	catalog, err := roles.Load(c.String("roles-file"))
	if err != nil {
		return nil, nil, cli.Exit(err.Error(), 2)
	}
	return logger, catalog, nil
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "Consume interview jobs from RabbitMQ",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of consumers (overrides WORKERS)",
			},
		},
		Action: workerAction,
	}
}

func workerAction(c *cli.Context) error {
	logger, catalog, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if n := c.Int("workers"); n > 0 {
		cfg.Workers = n
	}

	db, err := sql.Open("postgres", cfg.DBURL)
	if err != nil {
		return fmt.Errorf("error opening db: %w", err)
	}
	defer db.Close()

	awsConfig, err := config.LoadDefaultConfig(c.Context,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2.AccessKey, cfg.R2.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return fmt.Errorf("error creating aws config: %w", err)
	}

	provider, model, err := newProvider(c.Context, cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to create model provider: %w", err)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}
	defer conn.Close()

	workerConfig := WorkerConfig{
		DB:          database.New(db),
		Objects:     newR2Fetcher(awsConfig, cfg.R2),
		Generator:   newGenerator(provider, model, logger),
		Roles:       catalog,
		RABBITMQUrl: cfg.RabbitMQURL,
		RabbitConn:  conn,
		Logger:      logger,
	}

	logger.Info("starting consumer pool",
		zap.Int("workers", cfg.Workers),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", model),
	)
	return workerConfig.StartConsumerWorkerPool(cfg.Workers)
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Move a session back to SETUP",
		ArgsUsage: "<session-id>",
		Action:    resetAction,
	}
}

func resetAction(c *cli.Context) error {
	logger, _, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	id, err := uuid.Parse(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("invalid session id %q", c.Args().First()), 2)
	}
	dbURL, err := requireEnv("DB_URL")
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("error opening db: %w", err)
	}
	defer db.Close()

	queries := database.New(db)
	sess, err := queries.GetInterviewSession(c.Context, id)
	if err != nil {
		return fmt.Errorf("error getting session %v: %w", id, err)
	}
	step, _ := interview.Transition(interview.Step(sess.Step), interview.EventReset)
	if err := queries.UpdateSessionProgress(c.Context, database.UpdateSessionProgressParams{
		Status: "pending",
		Step:   string(step),
		ID:     id,
	}); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	logger.Info("session reset", zap.String("session_id", id.String()), zap.String("from", sess.Step))
	return nil
}

func jdFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "jd",
			Usage: "Preset job description id (see the jds command)",
			Value: interview.PresetJDs[0].ID,
		},
		&cli.PathFlag{
			Name:  "jd-file",
			Usage: "Read the job description from a file instead of a preset",
		},
		&cli.StringFlag{
			Name:  "role",
			Usage: "Interviewer role id (see the roles command); defaults to the first role",
		},
		&cli.StringFlag{
			Name:  "mode",
			Usage: "generate, regenerate or continue",
			Value: string(interview.ModeGenerate),
		},
		&cli.StringFlag{
			Name:  "feedback",
			Usage: "Recruiter feedback for regenerate or continue",
		},
		&cli.PathFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Write the result here instead of stdout",
		},
	}
}

func questionsCommand() *cli.Command {
	return &cli.Command{
		Name:      "questions",
		Usage:     "Generate interview questions from local resume files",
		ArgsUsage: " ",
		Flags: append(jdFlags(),
			&cli.StringSliceFlag{
				Name:     "resume",
				Usage:    "Resume file (pdf, docx, txt, md or image); repeatable",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "extra",
				Usage: "Extra requirements for the question set",
			},
			&cli.PathFlag{
				Name:  "previous",
				Usage: "Existing questions JSON to continue from",
			},
		),
		Action: questionsAction,
	}
}

func questionsAction(c *cli.Context) error {
	logger, catalog, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in := questionInput{
		ExtraRequirements: c.String("extra"),
		Feedback:          c.String("feedback"),
		Mode:              interview.Mode(c.String("mode")),
	}
	if !in.Mode.Valid() {
		return cli.Exit(fmt.Sprintf("invalid --mode %q", in.Mode), 2)
	}
	if in.Role, err = catalog.Find(c.String("role")); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if in.JD, err = readJD(c); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if in.Resumes, err = readAttachments(c.StringSlice("resume")); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if p := c.Path("previous"); p != "" {
		if err := readJSONFile(p, &in.Previous); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	gen, err := localGenerator(c.Context, logger)
	if err != nil {
		return err
	}
	questions, err := gen.generateQuestions(c.Context, in, progressLogger(logger, "questions"))
	if err != nil {
		return fmt.Errorf("question generation failed: %w", err)
	}
	return writeResult(c, questions)
}

func evaluateCommand() *cli.Command {
	return &cli.Command{
		Name:      "evaluate",
		Usage:     "Evaluate a candidate from an interview transcript",
		ArgsUsage: " ",
		Flags: append(jdFlags(),
			&cli.PathFlag{
				Name:     "questions",
				Usage:    "Questions JSON produced by the questions command",
				Required: true,
			},
			&cli.PathFlag{
				Name:  "transcript",
				Usage: "Plain-text transcript file",
			},
			&cli.StringSliceFlag{
				Name:  "transcript-file",
				Usage: "Transcript document (pdf, docx, image); repeatable",
			},
			&cli.PathFlag{
				Name:  "previous",
				Usage: "Existing evaluation JSON to continue from",
			},
		),
		Action: evaluateAction,
	}
}

func evaluateAction(c *cli.Context) error {
	logger, catalog, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	in := evaluationInput{
		Feedback: c.String("feedback"),
		Mode:     interview.Mode(c.String("mode")),
	}
	if !in.Mode.Valid() {
		return cli.Exit(fmt.Sprintf("invalid --mode %q", in.Mode), 2)
	}
	if in.Role, err = catalog.Find(c.String("role")); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if in.JD, err = readJD(c); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if err := readJSONFile(c.Path("questions"), &in.Questions); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if len(in.Questions) == 0 {
		return cli.Exit(interview.ErrNoQuestions.Error(), 2)
	}
	if p := c.Path("transcript"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot read transcript: %v", err), 2)
		}
		in.Transcript = string(data)
	}
	if in.Files, err = readAttachments(c.StringSlice("transcript-file")); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if in.Transcript == "" && len(in.Files) == 0 {
		return cli.Exit("either --transcript or --transcript-file is required", 2)
	}
	if p := c.Path("previous"); p != "" {
		if err := readJSONFile(p, &in.Previous); err != nil {
			return cli.Exit(err.Error(), 2)
		}
	}

	gen, err := localGenerator(c.Context, logger)
	if err != nil {
		return err
	}
	evaluation, err := gen.evaluate(c.Context, in, progressLogger(logger, "evaluation"))
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	return writeResult(c, evaluation)
}

func rolesCommand() *cli.Command {
	return &cli.Command{
		Name:  "roles",
		Usage: "List interviewer roles",
		Action: func(c *cli.Context) error {
			_, catalog, err := setup(c)
			if err != nil {
				return err
			}
			w := c.App.Writer
			for i, r := range catalog.Roles {
				marker := " "
				if i == 0 {
					marker = "*"
				}
				fmt.Fprintf(w, "%s %-16s %s\n", marker, r.ID, r.Label)
				if r.Description != "" {
					fmt.Fprintf(w, "  %-16s %s\n", "", r.Description)
				}
			}
			return nil
		},
	}
}

func jdsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jds",
		Usage: "List preset job descriptions",
		Action: func(c *cli.Context) error {
			for _, jd := range interview.PresetJDs {
				fmt.Fprintf(c.App.Writer, "%-18s %s\n", jd.ID, jd.Title)
			}
			return nil
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:      "schema",
		Usage:     "Print the JSON schema the model is asked to follow",
		ArgsUsage: "questions|evaluation",
		Action: func(c *cli.Context) error {
			switch c.Args().First() {
			case "questions", "":
				fmt.Fprintln(c.App.Writer, interview.SchemaText(interview.QuestionSchema()))
			case "evaluation":
				fmt.Fprintln(c.App.Writer, interview.SchemaText(interview.EvaluationSchema()))
			default:
				return cli.Exit(fmt.Sprintf("unknown schema %q", c.Args().First()), 2)
			}
			return nil
		},
	}
}

func localGenerator(ctx context.Context, logger *zap.Logger) (*generator, error) {
	cfg, err := loadLLMConfig()
	if err != nil {
		return nil, cli.Exit(err.Error(), 2)
	}
	provider, model, err := newProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}
	logger.Info("using model", zap.String("provider", cfg.Provider), zap.String("model", model))
	return newGenerator(provider, model, logger), nil
}

// progressLogger reports partial results while the model streams.
func progressLogger(logger *zap.Logger, what string) progress {
	return progress{
		partial: func(partial json.RawMessage) {
			logger.Debug("partial "+what, zap.ByteString("value", partial))
			var items []json.RawMessage
			if json.Unmarshal(partial, &items) == nil {
				logger.Info("streaming "+what, zap.Int("items", len(items)))
			}
		},
		restart: func(attempt int) {
			logger.Warn("retrying "+what+", discarding partial output", zap.Int("attempt", attempt))
		},
	}
}

func readJD(c *cli.Context) (string, error) {
	if p := c.Path("jd-file"); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("cannot read job description: %w", err)
		}
		return string(data), nil
	}
	jd, ok := interview.FindJD(c.String("jd"))
	if !ok {
		return "", fmt.Errorf("unknown job description preset %q", c.String("jd"))
	}
	return jd.Content, nil
}

func readAttachments(paths []string) ([]llm.Attachment, error) {
	out := make([]llm.Attachment, 0, len(paths))
	for _, p := range paths {
		mime, ok := mimeFromPath(p)
		if !ok {
			return nil, fmt.Errorf("unsupported file type: %s", p)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", p, err)
		}
		a, err := loadAttachment(filepath.Base(p), mime, data)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func readJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}

func writeResult(c *cli.Context, v any) error {
	var w io.Writer = c.App.Writer
	if p := c.Path("out"); p != "" {
		f, err := os.Create(p)
		if err != nil {
			return fmt.Errorf("cannot create %s: %w", p, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
