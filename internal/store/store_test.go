package store

import (
	"errors"
	"testing"
)

func TestCheckTable(t *testing.T) {
	for _, table := range []string{TableChannels, TableMessages} {
		if err := CheckTable(table); err != nil {
			t.Errorf("CheckTable(%q) = %v, want nil", table, err)
		}
	}
	for _, table := range []string{"", "users", "channels; DROP TABLE channels"} {
		if err := CheckTable(table); !errors.Is(err, ErrUnknownTable) {
			t.Errorf("CheckTable(%q) = %v, want ErrUnknownTable", table, err)
		}
	}
}
