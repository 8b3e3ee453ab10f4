package callback

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/contest-bot/internal/models"
	"pgregory.net/rapid"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action Action
		want   string
	}{
		{Language("uz"), "lang:uz"},
		{Region(3), "region:3"},
		{Vote(models.ProjectRef{Source: models.SourceSeason, ID: 12}), "vote:s12"},
		{Edit(models.ProjectRef{Source: models.SourceAdhoc, ID: 7}), "edit:a7"},
		{Delete(models.ProjectRef{Source: models.SourceAdhoc, ID: 7}), "del:a7"},
		{VoteApprove(42), "vapp:42"},
		{VoteReject(42), "vrej:42"},
		{WithdrawMethod(models.MethodCard), "wmeth:card"},
		{WithdrawApprove(9), "wapp:9"},
		{WithdrawComplete(9), "wdone:9"},
		{WithdrawReject(9), "wrej:9"},
		{Confirm, "ok"},
		{Discard, "no"},
		{Cancel, "cancel"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, tt.action.Encode())

			decoded, err := Decode(tt.want)
			require.NoError(t, err)
			require.Equal(t, tt.action, decoded)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"unknown:1",
		"vote",
		"vote:",
		"vote:x12",
		"vapp:abc",
		"vapp:-1",
		"wapp:0",
		"wmeth:paypal",
		"region:99",
		"region:-1",
		"ok:1",
		"cancel:now",
		"lang:waytoolongcode",
		"vapp:1" + string(make([]byte, MaxLen)),
	}
	for _, in := range inputs {
		_, err := Decode(in)
		require.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		id := rapid.IntRange(1, 1<<31-1).Draw(t, "id")
		ref := models.ProjectRef{
			Source: rapid.SampledFrom([]models.ProjectSource{models.SourceSeason, models.SourceAdhoc}).Draw(t, "source"),
			ID:     id,
		}
		action := rapid.SampledFrom([]Action{
			Vote(ref), Edit(ref), Delete(ref),
			VoteApprove(id), VoteReject(id),
			WithdrawApprove(id), WithdrawComplete(id), WithdrawReject(id),
			Region(rapid.IntRange(0, len(models.Regions)-1).Draw(t, "region")),
			Confirm, Discard, Cancel,
		}).Draw(t, "action")

		data := action.Encode()
		if len(data) > MaxLen {
			t.Fatalf("payload %q exceeds %d bytes", data, MaxLen)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%q): %v", data, err)
		}
		if got != action {
			t.Fatalf("got %+v, want %+v", got, action)
		}
	})
}
