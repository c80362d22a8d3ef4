package process

import (
	"fmt"
	"strings"
)

// DevNull is the output target meaning "discard everything".
const DevNull = "/dev/null"

// BuildArgv validates the executable path and arguments and returns the
// argument vector handed to execve: the executable itself as argv[0]
// followed by args.
func BuildArgv(executable string, args []string) ([]string, error) {
	if strings.TrimSpace(executable) == "" {
		return nil, fmt.Errorf("%w: executable path is empty", ErrValidation)
	}
	if strings.IndexByte(executable, 0) >= 0 {
		return nil, &ValidationError{Field: "executable", Value: executable}
	}
	argv := make([]string, 0, len(args)+1)
	argv = append(argv, executable)
	for _, a := range args {
		if strings.IndexByte(a, 0) >= 0 {
			return nil, &ValidationError{Field: "argument", Value: a}
		}
		argv = append(argv, a)
	}
	return argv, nil
}

func validateOutput(output string) error {
	if output == "" {
		return fmt.Errorf("%w: output target is empty", ErrValidation)
	}
	if strings.IndexByte(output, 0) >= 0 {
		return &ValidationError{Field: "output", Value: output}
	}
	return nil
}
