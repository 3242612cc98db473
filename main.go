// Command interviewworker generates interview questions from resumes and
// evaluates candidates from interview transcripts, streaming partial
// results while the model is still writing.
//
// Usage:
//
//	interviewworker worker                   consume jobs from RabbitMQ
//	interviewworker questions --resume cv.pdf
//	interviewworker evaluate --questions q.json --transcript t.txt
//	interviewworker roles | jds | schema [questions|evaluation]
//	interviewworker reset <session-id>
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:           "interviewworker",
		Usage:          "Interview question generation and candidate evaluation",
		Flags:          globalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			workerCommand(),
			questionsCommand(),
			evaluateCommand(),
			rolesCommand(),
			jdsCommand(),
			schemaCommand(),
			resetCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler keeps exit codes set with cli.Exit.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
