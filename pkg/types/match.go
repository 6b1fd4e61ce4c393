package types

// Match is one line of scanner output: a rule that matched the item.
type Match struct {
	// Rule is the matched rule identifier, the first space-delimited token.
	Rule string `json:"rule"`

	// Raw holds every token of the output line, Rule included. Additional
	// tokens depend on the flags passed to the scanner (tags, the scanned
	// path, string offsets) and are not interpreted.
	Raw []string `json:"raw"`
}

// Fields returns the tokens following the rule identifier.
func (m *Match) Fields() []string {
	if len(m.Raw) < 2 {
		return nil
	}
	return m.Raw[1:]
}
