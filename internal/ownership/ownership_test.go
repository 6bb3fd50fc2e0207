package ownership

import (
	"errors"
	"testing"

	"github.com/vidshare/vidshare-api-go/internal/model"
)

func TestAuthorize(t *testing.T) {
	const owner = "01HZX3Q6W8N7K2M4P5R6S7T8V9"
	cases := []struct {
		name      string
		owner     string
		requester string
		ok        bool
	}{
		{"same id", owner, owner, true},
		{"lower case requester", owner, "01hzx3q6w8n7k2m4p5r6s7t8v9", true},
		{"padded requester", owner, " " + owner + "\n", true},
		{"different id", owner, "01HZX3Q6W8N7K2M4P5R6S7T8VA", false},
		{"absent requester", owner, "", false},
		{"blank requester", owner, "   ", false},
		{"absent owner", "", owner, false},
		{"both absent", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.owner, tc.requester)
			if tc.ok && err != nil {
				t.Errorf("Authorize() error = %v, want nil", err)
			}
			if !tc.ok && !errors.Is(err, ErrUnauthorized) {
				t.Errorf("Authorize() error = %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestCheckUsesResourceOwner(t *testing.T) {
	tweet := model.Tweet{ID: "T1", Owner: "U1"}
	if err := Check(tweet, "U1"); err != nil {
		t.Errorf("Check(owner) error = %v", err)
	}
	if err := Check(tweet, "U2"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Check(non-owner) error = %v, want ErrUnauthorized", err)
	}
}
