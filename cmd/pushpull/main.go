package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/boltdb/bolt"
	"go.llib.dev/frameless/pkg/cli"
	"go.llib.dev/frameless/pkg/errorkit"
	"go.llib.dev/frameless/pkg/logging"

	"github.com/pushpull/pushpull/pkg/genkit"
	"github.com/pushpull/pushpull/pkg/refillkit"
)

func main() {
	cli.Main(context.Background(), Mux())
}

func Mux() *cli.Mux {
	var m cli.Mux
	m.Handle("lines", LinesCommand{})
	m.Handle("bolt", BoltCommand{})
	return &m
}

type LinesCommand struct {
	BatchSize   int  `flag:"batch" env:"PUSHPULL_BATCH_SIZE" desc:"number of lines read per refill (default 64)"`
	MaxCapacity int  `flag:"max-capacity" env:"PUSHPULL_MAX_CAPACITY" desc:"queue slot limit, unlimited when not set"`
	Debug       bool `flag:"debug" env:"PUSHPULL_DEBUG" desc:"log generator events to stderr"`
}

func (cmd LinesCommand) Summary() string { return "echo STDIN line by line through a generator" }

func (cmd LinesCommand) ServeCLI(w cli.ResponseWriter, r *cli.Request) {
	src := refillkit.Lines(bufio.NewScanner(r.Body), cmd.BatchSize)
	g := genkit.FromSource(src,
		genkit.WithMaxCapacity[string](cmd.MaxCapacity),
		genkit.WithName[string]("lines"),
		genkit.WithLogger[string](newLogger(cmd.Debug)))

	handleError(w, drain(g, func(line string) error {
		_, err := fmt.Fprintln(w, line)
		return err
	}))
}

type BoltCommand struct {
	Path     string `flag:"db" required:"true" desc:"path of the bolt database file"`
	Bucket   string `flag:"bucket" required:"true" desc:"bucket to read"`
	PageSize int    `flag:"page" env:"PUSHPULL_PAGE_SIZE" desc:"number of records read per refill (default 64)"`
	Debug    bool   `flag:"debug" env:"PUSHPULL_DEBUG" desc:"log generator events to stderr"`
}

func (cmd BoltCommand) Summary() string { return "print the records of a bolt bucket in key order" }

func (cmd BoltCommand) ServeCLI(w cli.ResponseWriter, r *cli.Request) {
	db, err := bolt.Open(cmd.Path, 0600, &bolt.Options{ReadOnly: true})
	if err != nil {
		handleError(w, err)
		return
	}
	src := refillkit.Bolt(db, []byte(cmd.Bucket), cmd.PageSize)
	g := genkit.FromSource(src,
		genkit.WithName[refillkit.KV]("bolt:"+cmd.Bucket),
		genkit.WithLogger[refillkit.KV](newLogger(cmd.Debug)))

	err = drain(g, func(kv refillkit.KV) error {
		_, err := fmt.Fprintf(w, "%s=%s\n", kv.Key, kv.Value)
		return err
	})
	handleError(w, errorkit.Merge(err, db.Close()))
}

func drain[T any](g *genkit.Generator[T], fn func(T) error) (rErr error) {
	defer errorkit.Finish(&rErr, g.Close)
	for v, err := range g.Iter() {
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// handleError reports err on the error output, so it never mixes into the data written to w.
func handleError(w cli.ResponseWriter, err error) {
	if err == nil {
		return
	}
	w.ExitCode(cli.ExitCodeError)
	var out io.Writer = w
	if ew, ok := w.(cli.ErrorWriter); ok && ew.Stderr() != nil {
		out = ew.Stderr()
	}
	fmt.Fprintln(out, err.Error())
}

func newLogger(debug bool) *logging.Logger {
	l := &logging.Logger{Out: os.Stderr}
	if debug {
		l.Level = logging.LevelDebug
	}
	return l
}
