package namespace

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/dfslabs/dfs/lib/meta"
)

const (
	tokenKind     = "DFS_DELEGATION_TOKEN"
	tokenLifetime = 24 * time.Hour
)

// tokenEntry is the server-side record of an issued delegation token.
type tokenEntry struct {
	token   meta.Token
	renewer string
	expires int64 // milliseconds since epoch
}

// --------------------------------------------------------------------------
// Token Operations (docu see meta/interface.go)
// --------------------------------------------------------------------------

func (s *Store) GetDelegationToken(renewer string) (*meta.Token, error) {
	if err := s.checkActive(); err != nil {
		return nil, err
	}

	password := make([]byte, 16)
	if _, err := rand.Read(password); err != nil {
		return nil, fmt.Errorf("failed to generate token secret: %w", err)
	}

	token := meta.Token{
		Identifier: []byte(fmt.Sprintf("dfs-token-%d", s.nextTokenID.Add(1))),
		Password:   password,
		Kind:       tokenKind,
	}
	s.tokens.Store(string(token.Identifier), &tokenEntry{
		token:   token,
		renewer: renewer,
		expires: nowMillis() + tokenLifetime.Milliseconds(),
	})
	return &token, nil
}

func (s *Store) RenewDelegationToken(token *meta.Token) (int64, error) {
	if err := s.checkActive(); err != nil {
		return 0, err
	}
	if token == nil {
		return 0, fmt.Errorf("cannot renew a nil token")
	}

	entry, ok := s.tokens.Load(string(token.Identifier))
	if !ok {
		return 0, fmt.Errorf("token %q is unknown or cancelled", token.Identifier)
	}
	if nowMillis() > entry.expires {
		return 0, fmt.Errorf("token %q has expired", token.Identifier)
	}

	renewed := &tokenEntry{
		token:   entry.token,
		renewer: entry.renewer,
		expires: nowMillis() + tokenLifetime.Milliseconds(),
	}
	s.tokens.Store(string(token.Identifier), renewed)
	return renewed.expires, nil
}

func (s *Store) CancelDelegationToken(token *meta.Token) error {
	if err := s.checkActive(); err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("cannot cancel a nil token")
	}

	if _, ok := s.tokens.LoadAndDelete(string(token.Identifier)); !ok {
		return fmt.Errorf("token %q is unknown or already cancelled", token.Identifier)
	}
	return nil
}
