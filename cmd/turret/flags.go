package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/teslashibe/go-turret/internal/config"
)

// Exit codes.
const (
	exitOK          = 0
	exitBadLog      = 1 // -log value is not t or f
	exitBadErr      = 2 // -err value is not t or f
	exitInvalidFlag = 3 // unknown flag or a bare word such as "list"
	exitFailure     = 4 // configuration or startup failure
)

const invalidFlag = "INVALID FLAG"

// flagList is printed by -list.
const flagList = "log\terr\ncam\thelp\nlist\tconfig\nport\taddr\nmodel"

// usage holds the text printed by -help <flag>.
var usage = map[string]string{
	"log": "NAME\n\t-log : Log normal program function\n" +
		"OPTIONS\n\tT, t : Display detailed (non-error related) logs\n\n\tF, f : Do not display logs",
	"err": "NAME\n\t-err : Log program warnings and errors\n" +
		"OPTIONS\n\tT, t : Always display warnings and errors\n\n\tF, f : Do not display warnings and errors",
	"cam": "NAME\n\t-cam : Camera used for tracking\n" +
		"OPTIONS\n\t[0..9] : The index of the desired camera. Typically, 0 is the built-in webcam (if one exists)",
	"help": "NAME\n\t-help : Displays information about a flag\n" +
		"OPTIONS\n\t[flag name] : The desired flag",
	"list": "NAME\n\t-list : Lists all available flags",
	"config": "NAME\n\t-config : YAML configuration file\n" +
		"OPTIONS\n\t[path] : Keys absent from the file keep their defaults",
	"port": "NAME\n\t-port : Serial device of the turret board\n" +
		"OPTIONS\n\t[device] : e.g. /dev/ttyACM0 or COM3",
	"addr": "NAME\n\t-addr : Dashboard listen address\n" +
		"OPTIONS\n\t[host:port] : e.g. :8080",
	"model": "NAME\n\t-model : Whisper model used for voice commands\n" +
		"OPTIONS\n\t[path] : ggml model file",
}

// errStop ends parsing once -help or -list has been seen.
var errStop = errors.New("stop")

// options are the command line overrides. Nil pointers and empty strings
// leave the configured value alone.
type options struct {
	mirrorInfo   *bool
	mirrorErrors *bool
	camera       *int

	// badCamera is a rejected -cam value, reported once logging is up.
	badCamera string

	configPath string
	port       string
	addr       string
	model      string
}

// apply copies the overrides into cfg.
func (o options) apply(cfg *config.Config) {
	if o.mirrorInfo != nil {
		cfg.MirrorInfo = *o.mirrorInfo
	}
	if o.mirrorErrors != nil {
		cfg.MirrorErrors = *o.mirrorErrors
	}
	if o.camera != nil {
		cfg.Camera.Index = *o.camera
	}
	if o.port != "" {
		cfg.Serial.Port = o.port
	}
	if o.addr != "" {
		cfg.Web.Addr = o.addr
	}
	if o.model != "" {
		cfg.Voice.Model = o.model
	}
}

// report logs the overrides that were rejected during parsing. cfg is the
// configuration that is actually in effect.
func (o options) report(logger *slog.Logger, cfg config.Config) {
	if o.badCamera != "" {
		logger.Error("invalid camera index, keeping configured camera",
			"value", o.badCamera, "index", cfg.Camera.Index)
	}
}

type parser struct {
	stdout io.Writer
	stderr io.Writer

	opts options
	code int     // set by a value that must end the program
	help *string // topic of -help
	list bool
}

// parseArgs parses the command line. When exit is true the caller should
// exit with code without starting the turret.
func parseArgs(args []string, stdout, stderr io.Writer) (opts options, code int, exit bool) {
	p := &parser{stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("turret", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	fs.Func("log", "mirror info logs to the dashboard (t|f)", p.toggle("log", &p.opts.mirrorInfo, exitBadLog))
	fs.Func("err", "mirror warnings and errors to the dashboard (t|f)", p.toggle("err", &p.opts.mirrorErrors, exitBadErr))
	fs.Func("cam", "camera index", p.camera)
	fs.Func("help", "describe a flag", func(s string) error {
		p.help = &s
		return errStop
	})
	fs.BoolFunc("list", "list all flags", func(string) error {
		p.list = true
		return errStop
	})
	fs.StringVar(&p.opts.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&p.opts.port, "port", "", "serial device of the turret board")
	fs.StringVar(&p.opts.addr, "addr", "", "dashboard listen address")
	fs.StringVar(&p.opts.model, "model", "", "whisper model file")

	err := fs.Parse(args)
	switch {
	case p.list:
		fmt.Fprintln(stdout, flagList)
		return p.opts, exitOK, true
	case p.help != nil:
		p.describe(*p.help)
		return p.opts, exitOK, true
	case p.code != 0:
		return p.opts, p.code, true
	case errors.Is(err, flag.ErrHelp):
		fmt.Fprintln(stdout, flagList)
		return p.opts, exitOK, true
	case err != nil:
		fmt.Fprintf(stderr, "%s: %v\n%s\n", invalidFlag, err, flagList)
		return p.opts, exitInvalidFlag, true
	}

	if rest := fs.Args(); len(rest) > 0 {
		if rest[0] == "list" {
			fmt.Fprintf(stderr, "%s\n%s\n", invalidFlag, usage["list"])
		} else {
			fmt.Fprintf(stderr, "%s: unexpected argument %q\n%s\n", invalidFlag, rest[0], flagList)
		}
		return p.opts, exitInvalidFlag, true
	}
	return p.opts, exitOK, false
}

// toggle parses a t|f value, case-insensitively.
func (p *parser) toggle(name string, dst **bool, code int) func(string) error {
	return func(s string) error {
		var v bool
		switch strings.ToLower(s) {
		case "t":
			v = true
		case "f":
			v = false
		default:
			fmt.Fprintf(p.stderr, "%s\n%s\n", invalidFlag, usage[name])
			p.code = code
			return fmt.Errorf("want t or f, got %q", s)
		}
		*dst = &v
		return nil
	}
}

// camera keeps the configured index when the value is not a valid one.
func (p *parser) camera(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		fmt.Fprintf(p.stderr, "%s\n%s\n", invalidFlag, usage["cam"])
		p.opts.badCamera = s
		return nil
	}
	p.opts.camera = &n
	p.opts.badCamera = ""
	return nil
}

func (p *parser) describe(topic string) {
	text, ok := usage[strings.TrimPrefix(topic, "-")]
	if !ok {
		fmt.Fprintf(p.stdout, "%s\n%s\n", invalidFlag, usage["help"])
		return
	}
	fmt.Fprintln(p.stdout, text)
}
