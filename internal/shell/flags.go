package shell

import "strings"

// Flags is the parsed flag set of one command line. The parser is
// deliberately permissive: the terminal is exploratory, so unknown flags
// degrade to boolean true instead of aborting.
type Flags struct {
	values map[string]string
	set    map[string]bool

	// DashDash records that a bare "--" separated flags from paths.
	DashDash bool
}

// Parse splits args into flags and positionals.
//
// Recognised forms: long flags `--name` and `--name=value`; short flags
// `-x` with an optional attached value (`-n5`); everything else is a
// positional. Short flags listed in valueFlags, and long flags listed there
// written without `=value`, consume the following argument as their value.
// aliases maps single letters to their long names.
func Parse(args []string, aliases map[string]string, valueFlags map[string]bool) (*Flags, []string) {
	f := &Flags{values: map[string]string{}, set: map[string]bool{}}
	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			f.DashDash = true
			positional = append(positional, args[i+1:]...)
			return f, positional
		case strings.HasPrefix(arg, "--"):
			name := arg[2:]
			if name == "" {
				continue
			}
			if key, value, ok := strings.Cut(name, "="); ok {
				f.set[key] = true
				f.values[key] = value
				continue
			}
			if valueFlags[name] && i+1 < len(args) {
				f.set[name] = true
				f.values[name] = args[i+1]
				i++
				continue
			}
			f.set[name] = true
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			short := arg[1:2]
			name := short
			if long, ok := aliases[short]; ok {
				name = long
			}
			f.set[name] = true
			if rest := arg[2:]; rest != "" {
				f.values[name] = rest
				continue
			}
			if valueFlags[name] && i+1 < len(args) {
				f.values[name] = args[i+1]
				i++
			}
		default:
			positional = append(positional, arg)
		}
	}
	return f, positional
}

// Bool reports whether the flag was given at all.
func (f *Flags) Bool(name string) bool { return f.set[name] }

// Value returns the flag's value, or "" when it was boolean or absent.
func (f *Flags) Value(name string) string { return f.values[name] }
