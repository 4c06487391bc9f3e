package validator

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestStructReportsJSONFieldNames(t *testing.T) {
	req := require.New(t)

	type loginInput struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8"`
	}

	errs := Struct(loginInput{Email: "not-an-email", Password: "short"})
	req.True(errs.HasErrors())
	req.Contains(errs, "email")
	req.Contains(errs, "password")

	errs = Struct(loginInput{Email: "a@example.com", Password: "long enough"})
	req.False(errs.HasErrors())
}

func TestValidateMessageBody(t *testing.T) {
	req := require.New(t)

	req.True(ValidateMessageBody("").HasErrors())
	req.True(ValidateMessageBody("   \t\n ").HasErrors())
	req.False(ValidateMessageBody("hello").HasErrors())
	req.False(ValidateMessageBody("  padded  ").HasErrors())
}

func TestValidateParticipants(t *testing.T) {
	req := require.New(t)

	creator := uuid.New()
	other := uuid.New()

	req.True(ValidateParticipants(creator, nil).HasErrors())
	req.True(ValidateParticipants(creator, []uuid.UUID{creator}).HasErrors())
	req.True(ValidateParticipants(creator, []uuid.UUID{uuid.Nil}).HasErrors())
	req.False(ValidateParticipants(creator, []uuid.UUID{other}).HasErrors())
	req.False(ValidateParticipants(creator, []uuid.UUID{other, other}).HasErrors())
}
