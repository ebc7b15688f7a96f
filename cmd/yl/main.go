// Command yl evaluates local-tagged YAML documents against an embedded
// expression runtime, streaming events from input to output without
// building a full in-memory document (§6).
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/willabides/yl/internal/engine"
	"github.com/willabides/yl/internal/errs"
	"github.com/willabides/yl/internal/harness"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("yl", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	inPath := flags.StringP("in", "i", "-", "input stream; - means standard input")
	outPath := flags.StringP("out", "o", "-", "output stream; - means standard output")
	debug := flags.BoolP("debug", "d", false, "dump events and values for inspection instead of emitting YAML")
	test := flags.BoolP("test", "t", false, "run in test-harness mode")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	in, closeIn, err := openInput(*inPath, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeIn()

	out, closeOut, err := openOutput(*outPath, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeOut()

	log := logrus.New()
	log.SetOutput(stderr)
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	producer := engine.NewParserProducer(in)
	var consumer engine.Consumer
	if *debug {
		consumer = engine.NewDumpConsumer(log)
	} else {
		consumer = engine.NewEmitterConsumer(out)
	}

	eval := engine.New(producer, consumer, log)
	defer eval.Close()

	var runErr *errs.Error
	if *test {
		runErr = harness.New(eval, consumer).Run()
	} else {
		runErr = eval.Run()
	}

	if runErr != nil {
		fmt.Fprintln(stderr, runErr.Error())
		return 1
	}
	return 0
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "-" {
		return stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
