// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) runs the init functions of each backend, which register their
// factories with the storage package. After importing it the following kinds
// are available through storage.New:
//
//   - "postgres" (internal/storage/postgres)
//   - "sqlite"   (internal/storage/sqlite)
//   - "mssql"    (internal/storage/mssql)
//   - "mysql"    (internal/storage/mysql)
package all

import (
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/mssql"
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/mysql"
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/postgres"
	_ "github.com/nishtha161122/NYC-yellow-taxi-trip-assign/internal/storage/sqlite"
)
