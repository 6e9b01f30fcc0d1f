package lprolog

import (
	"strings"

	"github.com/spf13/pflag"
)

// ParseFlags scans args for the flags the reference driver recognises:
// -trace, -delay-outside-fragment, -max-steps N and -document-builtins.
// Anything else is returned to the host unmodified, in order.
func ParseFlags(args []string) (Options, []string, error) {
	fs := pflag.NewFlagSet("lprolog", pflag.ContinueOnError)
	var o Options
	fs.BoolVar(&o.Trace, "trace", false, "trace goal dispatch")
	fs.BoolVar(&o.DelayOutsideFragment, "delay-outside-fragment", false, "suspend equations outside the pattern fragment instead of reporting an error")
	fs.Uint64Var(&o.MaxSteps, "max-steps", 0, "bound the number of goal dispatches")
	fs.BoolVar(&o.DocumentBuiltins, "document-builtins", false, "print the registered built-ins and exit")

	var unknown []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			unknown = append(unknown, a)
			continue
		}
		name := strings.TrimLeft(a, "-")
		value := ""
		hasValue := false
		if j := strings.IndexByte(name, '='); j >= 0 {
			name, value, hasValue = name[:j], name[j+1:], true
		}
		f := fs.Lookup(name)
		if f == nil {
			unknown = append(unknown, a)
			continue
		}
		if f.Value.Type() != "bool" && !hasValue {
			if i+1 >= len(args) {
				return o, unknown, &usageError{flag: a}
			}
			i++
			value = args[i]
			hasValue = true
		}
		if !hasValue {
			value = "true"
		}
		if err := fs.Set(name, value); err != nil {
			return o, unknown, &usageError{flag: a, cause: err}
		}
	}
	return o, unknown, nil
}

type usageError struct {
	flag  string
	cause error
}

func (e *usageError) Error() string {
	if e.cause != nil {
		return "bad flag " + e.flag + ": " + e.cause.Error()
	}
	return "flag " + e.flag + " needs a value"
}

// IsUsageError reports whether err is a flag usage error; the reference
// driver exits with status 2 on those.
func IsUsageError(err error) bool {
	_, ok := err.(*usageError)
	return ok
}
