package sqlgen

import (
	"entitysql/internal/metadata"
)

// AssignGeneratedIdentity fills every blank auto-generated identity of the
// struct ptr points to. Text identities receive a base-36 identifier and
// *big.Int identities the packed numeric form. Non-blank values are kept.
func (g *Generator) AssignGeneratedIdentity(ptr any) error {
	e, err := g.reg.Entity(ptr)
	if err != nil {
		return err
	}
	for _, p := range e.Identities {
		if !p.AutoGenerate {
			continue
		}
		cur, err := p.Get(ptr)
		if err != nil {
			return err
		}
		if !metadata.ValueOf(cur).Blank() {
			continue
		}

		if g.ids == nil {
			return metadata.ConfigError(e.Name, "identity %s needs a generated value but no id source is configured", p.Name)
		}
		var next any
		if p.IsBigInt() {
			next = g.ids.NextBig()
		} else {
			next = g.ids.NextBase36()
		}
		if err := p.Set(ptr, next); err != nil {
			return err
		}
	}
	return nil
}
