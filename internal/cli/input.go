package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/cardwise/internal/common"
	"github.com/Veraticus/cardwise/internal/model"
)

// ReadSMSInputs reads messages for a batch run. Input is either a JSON array
// of {"message","sender"} objects or one message per line written as
// "SENDER<TAB>message" or "SENDER|message". Blank lines and lines starting
// with # are skipped.
func ReadSMSInputs(r io.Reader) ([]model.SMSInput, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var inputs []model.SMSInput
		if err := json.Unmarshal(trimmed, &inputs); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON input: %w", common.ErrInvalidInput, err)
		}
		return inputs, nil
	}

	var inputs []model.SMSInput
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sender, message, ok := strings.Cut(line, "\t")
		if !ok {
			sender, message, ok = strings.Cut(line, "|")
		}
		if !ok {
			return nil, fmt.Errorf("%w: line %d has no sender separator", common.ErrInvalidInput, n)
		}
		inputs = append(inputs, model.SMSInput{
			Sender:  strings.TrimSpace(sender),
			Message: strings.TrimSpace(message),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan input: %w", err)
	}
	return inputs, nil
}
