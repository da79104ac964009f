package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"envcube/envmap"

	"golang.org/x/exp/slices"
)

type impl string

const (
	implGl impl = "opengl"
	implSw impl = "software"
)

func (i *impl) String() string {
	return string(*i)
}

func (i *impl) Set(s string) error {
	switch impl(s) {
	case implGl:
		*i = implGl
	case implSw:
		*i = implSw
	default:
		return fmt.Errorf("%s is not a valid implementation", s)
	}
	return nil
}

type sizeUnit string

const (
	unitPixel   = "px"
	unitPercent = "%"
)

type size struct {
	unit    sizeUnit
	pixel   int32
	percent float64
}

func (sz *size) String() string {
	switch sz.unit {
	case unitPercent:
		return fmt.Sprintf("%s%%", strconv.FormatFloat(sz.percent, 'f', -1, 64))
	case unitPixel:
		return fmt.Sprintf("%dpx", sz.pixel)
	default:
		return ""
	}
}

func (sz *size) Set(s string) error {
	s = strings.TrimSpace(s)
	var err error
	var px int64
	switch {
	case strings.HasSuffix(s, unitPercent):
		sz.unit = unitPercent
		sz.percent, err = strconv.ParseFloat(strings.TrimSuffix(s, unitPercent), 64)
	case strings.HasSuffix(s, unitPixel):
		sz.unit = unitPixel
		px, err = strconv.ParseInt(strings.TrimSuffix(s, unitPixel), 10, 32)
		sz.pixel = int32(px)
	default:
		return fmt.Errorf("size %q needs a %s or %s suffix", s, unitPixel, unitPercent)
	}
	return err
}

func (sz *size) Calc(width int) int {
	switch sz.unit {
	case unitPercent:
		return int(math.Round(sz.percent / 100 * float64(width)))
	case unitPixel:
		return int(sz.pixel)
	}
	return 0
}

type projection struct {
	envmap.Projection
}

func (p *projection) Set(s string) (err error) {
	p.Projection, err = envmap.ParseProjection(s)
	return err
}

type commonArgs struct {
	compress bool
	out      string
	quiet    bool
	supress  bool
	verbose  bool
	ext      string
	suffix   string
}

type sizeImplArgs struct {
	size size
	impl impl
}

var cargs *commonArgs

type command struct {
	Run   func(self *command)
	Name  string
	Help  string
	Flags *flag.FlagSet
}

var commands = []*command{}

func printGeneralUsage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [arguments]\n\n", exe)
	fmt.Fprintf(os.Stderr, "The commands are:\n\n")
	longest := slices.MaxFunc(commands, func(a, b *command) int {
		return len(a.Name) - len(b.Name)
	})
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "    %*s%s\n", -len(longest.Name)-4, c.Name, c.Help)
	}
	fmt.Fprintln(os.Stderr, "")
	os.Exit(1)
}

func printCommandUsage(cmd *command, suffix string) {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s %s [arguments]%s\n\n", exe, cmd.Name, suffix)
	fmt.Fprintf(os.Stderr, "The arguments are:\n\n")
	cmd.Flags.SetOutput(os.Stderr)
	cmd.Flags.PrintDefaults()
	os.Exit(1)
}

func main() {
	commands = append(commands, createConvertCommand())
	commands = append(commands, createPackCommand())
	commands = append(commands, createPreviewCommand())

	slices.SortFunc(commands, func(a, b *command) int {
		return strings.Compare(a.Name, b.Name)
	})

	if len(os.Args) < 2 {
		printGeneralUsage()
	}

	var cmd *command
	for _, c := range commands {
		if strings.EqualFold(c.Name, os.Args[1]) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		printGeneralUsage()
	}

	err := cmd.Flags.Parse(os.Args[2:])
	harderr(err)

	cmd.Run(cmd)
}

func registerCommonFlags(flags *flag.FlagSet, args *commonArgs) {
	flags.BoolVar(&args.compress, "compress", args.compress, "lz4 compress the result")
	flags.BoolVar(&args.compress, "c", args.compress, "shorthand for compress")
	flags.StringVar(&args.out, "out", args.out, "the output directory")
	flags.StringVar(&args.out, "o", args.out, "shorthand for out")
	flags.BoolVar(&args.quiet, "quiet", args.quiet, "disables informational logging")
	flags.BoolVar(&args.quiet, "q", args.quiet, "shorthand for quiet")
	flags.BoolVar(&args.supress, "supress", args.supress, "disables soft error logging")
	flags.BoolVar(&args.verbose, "v", args.verbose, "enables debug logging")
	flags.StringVar(&args.ext, "ext", args.ext, "the result file extension")
	flags.StringVar(&args.suffix, "suffix", args.suffix, "the result file suffix")
}

func registerSizeImplFlag(flags *flag.FlagSet, args *sizeImplArgs) {
	flags.Var(&args.size, "size", "the cubemap face resolution, either % of the input width or absolute px")
	flags.Var(&args.size, "s", "shorthand for size")
	flags.Var(&args.impl, "impl", "the conversion implementation; opengl or software")
}

func setCommonArgs(args *commonArgs) {
	cargs = args
	if args.out == "" {
		var err error
		args.out, err = os.Getwd()
		harderr(err)
	}

	_, err := os.Stat(args.out)
	if err != nil {
		harderr(fmt.Errorf("cannot stat output directory: %w", err))
	}
}

// logger reports library diagnostics on stderr. Warnings are hidden by -quiet
// unless -v is set.
func logger() *slog.Logger {
	level := slog.LevelWarn
	switch {
	case cargs.verbose:
		level = slog.LevelDebug
	case cargs.quiet:
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func gatherInputFiles(globs []string) []string {
	matched := []string{}

	for _, g := range globs {
		m, err := filepath.Glob(g)
		softerr(err)
		matched = append(matched, m...)
	}

	return matched
}

func outputPath(p, ext string) string {
	base := filepath.Base(p)
	base = strings.TrimSuffix(base, ".lz4")
	return filepath.Join(cargs.out, strings.TrimSuffix(base, filepath.Ext(base))+ext)
}

func close(closer io.Closer) {
	closer.Close()
}

func softerr(err error) bool {
	if err != nil && !cargs.supress {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return true
	}
	return false
}

func harderr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
