// Package sanctions maintains the sanctioned-entity dataset and serves it as
// field-element commitments, padded to the circuit capacity, for proof
// generation.
package sanctions

// Entry is one sanctioned entity as published on a source list. Matching is
// exact on normalized name plus date of birth.
type Entry struct {
	Name        string
	DateOfBirth string
	Source      string
}

const (
	SourceOFAC = "OFAC_SDN"
	SourceEU   = "EU_CONSOLIDATED"
	SourceUN   = "UN_CONSOLIDATED"
)

// Builtin returns the bundled demonstration dataset. Production deployments
// replace this with a feed-synced list; the provider is agnostic to where
// entries come from.
func Builtin() []Entry {
	return []Entry{
		{Name: "Vladimir Putin", DateOfBirth: "1952-10-07", Source: SourceOFAC},
		{Name: "Kim Jong Un", DateOfBirth: "1984-01-08", Source: SourceOFAC},
		{Name: "Ali Khamenei", DateOfBirth: "1939-04-19", Source: SourceOFAC},
		{Name: "Bashar al-Assad", DateOfBirth: "1965-09-11", Source: SourceEU},
		{Name: "Alexander Lukashenko", DateOfBirth: "1954-08-30", Source: SourceEU},
		{Name: "Min Aung Hlaing", DateOfBirth: "1956-07-03", Source: SourceUN},
	}
}
