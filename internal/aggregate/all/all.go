// Package all registers every built-in aggregate backend.
package all

import (
	_ "explore/internal/aggregate/frame"
	_ "explore/internal/aggregate/sqlite"
)
