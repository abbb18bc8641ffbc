package subgraph

import "errors"

var ErrDomainInvalid = errors.New("Domain invalid: no supported subgraph found for given domain.")

// domainToPrefix maps a domain onto the network suffix of its subgraph name.
var domainToPrefix = map[string]string{
	"1111":       "rinkeby",
	"2221":       "kovan",
	"3331":       "goerli",
	"9991":       "mumbai",
	"1735356532": "optimism-goerli",
}

func GetPrefixForDomain(domain string) (string, error) {
	prefix, ok := domainToPrefix[domain]
	if !ok {
		return "", ErrDomainInvalid
	}
	return prefix, nil
}

func GetDomainFromPrefix(prefix string) (string, bool) {
	for domain, p := range domainToPrefix {
		if p == prefix {
			return domain, true
		}
	}
	return "", false
}
