package fetcher

import (
	"os"

	"github.com/rotisserie/eris"
)

// writeTestFile is a helper that writes data to a file path.
func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func errorsCause(err error) error {
	return eris.Cause(err)
}
