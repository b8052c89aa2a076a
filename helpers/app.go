package helpers

import (
	"os"

	"github.com/pocketbase/pocketbase"
)

// CreateApp builds the PocketBase app hosting the API. The data directory
// defaults to ./pb_data next to the binary and can be moved with NEURAX_DATA_DIR.
func CreateApp() *pocketbase.PocketBase {
	return pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir: os.Getenv("NEURAX_DATA_DIR"),
	})
}
