package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirbridge/internal/domain"
)

func TestUserDN_OpenLDAP(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeOpenLDAP)

	dn := m.UserDN("alice", []string{"Backend", "Engineering"})
	assert.Equal(t, "uid=alice,ou=Backend,ou=Engineering,dc=example,dc=com", dn)

	// No group: directly under the base.
	assert.Equal(t, "uid=bob,dc=example,dc=com", m.UserDN("bob", nil))
}

func TestUserDN_ActiveDirectory(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeActiveDirectory)

	dn := m.UserDN("alice", []string{"Backend", "Engineering"})
	assert.Equal(t, "CN=alice,OU=Backend,OU=Engineering,dc=example,dc=com", dn)
}

func TestUserDN_RoundTrip(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeOpenLDAP, domain.ModeActiveDirectory} {
		m := NewMapper("dc=example,dc=com", mode)

		for _, tc := range []struct {
			username string
			path     []string
		}{
			{"alice", []string{"Backend", "Engineering"}},
			{"bob", nil},
			{"o'hara, jr.", []string{"R+D", "Engineering"}},
			{"alice ", nil},
			{" quoted", []string{"Ops "}},
			{"#lead", []string{"a\\b"}},
		} {
			dn := m.UserDN(tc.username, tc.path)
			username, path, err := m.ParseUserDN(dn)
			require.NoError(t, err, "mode %s dn %s", mode, dn)
			assert.Equal(t, tc.username, username)
			assert.Equal(t, tc.path, path)
		}
	}
}

func TestParseUserDN_Rejects(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeOpenLDAP)

	var verr *domain.ValidationError

	_, _, err := m.ParseUserDN("uid=alice,dc=other,dc=org")
	require.ErrorAs(t, err, &verr)

	// AD-shaped RDN against an OpenLDAP mapper.
	_, _, err = m.ParseUserDN("cn=alice,dc=example,dc=com")
	require.ErrorAs(t, err, &verr)

	_, _, err = m.ParseUserDN("")
	require.ErrorAs(t, err, &verr)
}

func TestGroupDN(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeOpenLDAP)
	assert.Equal(t, "cn=Backend,ou=Engineering,dc=example,dc=com", m.GroupDN("Backend", []string{"Engineering"}))

	ad := NewMapper("dc=example,dc=com", domain.ModeActiveDirectory)
	assert.Equal(t, "CN=Backend,OU=Engineering,dc=example,dc=com", ad.GroupDN("Backend", []string{"Engineering"}))
}

func TestParseDN_HexPairEscapes(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeOpenLDAP)

	// Hex-pair escapes are valid RFC 4514 and must decode like backslash
	// escapes do.
	username, path, err := m.ParseUserDN(`uid=doe\2c john,dc=example,dc=com`)
	require.NoError(t, err)
	assert.Equal(t, "doe, john", username)
	assert.Empty(t, path)

	username, path, err = m.ParseUserDN(`uid=doe\2c john,ou=R\2bD,dc=example,dc=com`)
	require.NoError(t, err)
	assert.Equal(t, "doe, john", username)
	assert.Equal(t, []string{"R+D"}, path)
}

func TestParseDN_EscapedTrailingSpace(t *testing.T) {
	m := NewMapper("dc=example,dc=com", domain.ModeOpenLDAP)

	dn := m.UserDN("alice ", nil)
	assert.Equal(t, `uid=alice\ ,dc=example,dc=com`, dn)

	username, _, err := m.ParseUserDN(dn)
	require.NoError(t, err)
	assert.Equal(t, "alice ", username)
}

func TestParseDN_RejectsMultiValuedRDN(t *testing.T) {
	var verr *domain.ValidationError
	_, err := ParseDN("uid=alice+cn=alice,dc=example,dc=com")
	require.ErrorAs(t, err, &verr)
}
