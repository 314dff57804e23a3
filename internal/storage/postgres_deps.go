package storage

// This file exists solely to pin transitive dependencies required by the pgx
// driver stack. The real implementations live in the upstream modules; the
// blank imports keep the go tool from pruning them when tidying this
// repository.
import (
	_ "github.com/jackc/pgpassfile"
	_ "github.com/jackc/pgservicefile"
	_ "golang.org/x/sync/semaphore"
	_ "golang.org/x/text/transform"
)
