package verifier

import (
	"encoding/json"
	"log"

	"github.com/tarancss/balcheck/lib/balance"
)

// loggable is an entry of a verification trace.
type loggable interface {
	log(id string)
}

// text is a plain trace line.
type text string

func (t text) log(id string) {
	log.Printf("[%s] %s", id, string(t))
}

// record is a trace entry logged as a JSON object.
type record map[string]interface{}

func (r record) log(id string) {
	b, err := json.Marshal(r)
	if err != nil {
		log.Printf("[%s] %+v", id, map[string]interface{}(r))

		return
	}

	log.Printf("[%s] %s", id, b)
}

func balanceRecord(r balance.Result) record {
	rec := record{"wallet": r.Address.Hex(), "succeeded": r.Succeeded}
	if r.Amount != nil {
		rec["balance"] = r.Amount.String()
	}

	if r.Err != nil {
		rec["error"] = r.Err.Error()
	}

	return rec
}

func (v *Verifier) trace(debug bool, id string, e loggable) {
	if debug {
		e.log(id)
	}
}
