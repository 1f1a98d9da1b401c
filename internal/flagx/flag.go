// Package flagx filters command-line arguments so that independent flag
// sets can each parse only the flags they own.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName returns the bare name of a flag token ("--config=x" -> "config")
// and whether the token carries its value inline.
func flagName(arg string) (name string, inline bool, ok bool) {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return "", false, false
	}
	name = strings.TrimLeft(arg, "-")
	name, _, inline = strings.Cut(name, "=")
	return name, inline, name != ""
}

// FilterArgs keeps only the flags listed in allowed, together with their
// values. Names match regardless of dash count, as the flag package does, so
// "-c", "--c" and "--c=x" all match an allowed "-c".
//
// A value is taken from the following argument unless it looks like a flag
// itself. Positional arguments and unknown flags are dropped. The result is
// never nil.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		if name, _, ok := flagName(f); ok {
			keep[name] = true
		}
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, inline, ok := flagName(args[i])
		if !ok || !keep[name] {
			continue
		}
		out = append(out, args[i])
		if !inline && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}

// ConfigFileFlag inspects args (usually os.Args[1:]) and extracts the
// config file path provided via the -c or -config flags. The file may be
// JSON or TOML; the loader decides by extension. The last occurrence wins.
//
// Only these flags are parsed; other arguments are ignored so the server's
// own flag set and cobra commands can share the same argument list.
func ConfigFileFlag(args []string) string {
	var config string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&config, "c", "", "Path to config file (JSON or TOML)")
	fs.StringVar(&config, "config", "", "Path to config file (JSON or TOML)")

	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}
