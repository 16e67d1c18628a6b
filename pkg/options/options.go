package options

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group so they can be composed
// into a command's flag set and validated uniformly.
type IOptions interface {
	// Validate checks the option values and returns all problems found.
	Validate() []error

	// AddFlags binds the options to the given flag set.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// ValidateAddress checks that addr is a host:port string with a usable port.
func ValidateAddress(addr string) error {
	if _, port, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%q is not a valid address: %w", addr, err)
	} else if port == "" {
		return fmt.Errorf("%q is missing a port", addr)
	}
	return nil
}
