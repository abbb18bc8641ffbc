package sequencer

import "fmt"

func ErrUnknownChain(domain string) error {
	return fmt.Errorf("no chain id known for domain %s", domain)
}

func ErrNoDeployment(domain string) error {
	return fmt.Errorf("no bridge deployment configured for domain %s", domain)
}
