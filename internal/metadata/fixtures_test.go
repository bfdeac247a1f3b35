package metadata

import "math/big"

type Team struct {
	MyId        string
	YourId      string
	HisId       string
	Name        string
	Description *string
	Notes       string
	secret      string
}

func teamConfig() TypeConfig {
	return TypeConfig{
		Fields: map[string]FieldConfig{
			"MyId":   {Identity: true},
			"yourId": {Identity: true},
			"HisId":  {Identity: true},
			"Notes":  {Temporary: true},
		},
	}
}

type Ledger struct {
	Seq     *big.Int
	Amount  *big.Float
	Comment string
}

type hidden struct {
	a int
	b string
}
