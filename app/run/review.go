package run

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// PromptReview returns a Review that offers the persisted files for manual
// editing on the terminal and waits until the reviewer is done.
func PromptReview(in io.Reader, out io.Writer) Review {
	reader := bufio.NewReader(in)

	return func(outputFiles []string) (bool, error) {
		fmt.Fprintln(out, "\nPartition outputs ready for review:")
		for _, file := range outputFiles {
			fmt.Fprintf(out, "  %s\n", file)
		}

		fmt.Fprint(out, "\nDo you want to review and edit the records? (Y/N): ")
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false, fmt.Errorf("failed to read review answer: %w", err)
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			return false, nil
		}

		fmt.Fprint(out, "Edit the files in place, then press Enter to continue: ")
		if _, err := reader.ReadString('\n'); err != nil && err != io.EOF {
			return false, fmt.Errorf("failed to wait for review: %w", err)
		}
		return true, nil
	}
}
