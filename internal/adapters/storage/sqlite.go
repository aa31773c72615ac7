package storage

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"modernc.org/sqlite" // also registers the "sqlite" driver
)

// sqliteLower folds case in SQLite search queries. SQLite's built-in LOWER
// only folds ASCII, so "ÉLAN" would never match "élan".
const sqliteLower = "quotes_lower"

// registerSQLiteFuncs adds the custom functions to every SQLite connection
// opened afterwards. The driver rejects a second registration of a name.
var registerSQLiteFuncs = sync.OnceValue(func() error {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLower, 1, unicodeLower); err != nil {
		return fmt.Errorf("register %s: %w", sqliteLower, err)
	}

	return nil
})

// unicodeLower lower-cases its argument the same way the search pattern is
// lower-cased, so both sides of LIKE agree. NULL stays NULL.
func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", sqliteLower, v)
	}
}
