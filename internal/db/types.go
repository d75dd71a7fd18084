package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// pqStringArray stores a []string as a JSONB column, matching the
// JSONB-for-flexible-metadata convention used across this schema rather
// than Postgres's native array type.
type pqStringArray []string

func (a pqStringArray) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

func (a *pqStringArray) Scan(src interface{}) error {
	if src == nil {
		*a = pqStringArray{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("db: cannot scan %T into pqStringArray", src)
	}
	if len(b) == 0 {
		*a = pqStringArray{}
		return nil
	}
	return json.Unmarshal(b, (*[]string)(a))
}
