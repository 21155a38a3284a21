package credstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazurov/tc-credentials/internal/credentials"
	"github.com/mazurov/tc-credentials/internal/sys"
)

func keychainItem(service, account string) string {
	return fmt.Sprintf(`keychain: "/Users/dev/Library/Keychains/login.keychain-db"
version: 512
class: "genp"
attributes:
    0x00000007 <blob>="%[1]s"
    "acct"<blob>="%[2]s"
    "cdat"<timedate>=0x32303138303130313030303030305A00  "20180101000000Z\000"
    "svce"<blob>="%[1]s"
    "type"<uint32>=<NULL>
`, service, account)
}

// keychainRunner simulates the security utility over a fixed dump
type keychainRunner struct {
	fakeRunner
	dump      string
	passwords map[string]string
	deleteErr error
}

func newKeychainRunner(t *testing.T, dump string, passwords map[string]string) *keychainRunner {
	r := &keychainRunner{dump: dump, passwords: passwords}
	r.handle = func(cmd sys.Command) error {
		switch cmd.Args[0] {
		case "dump-keychain":
			writeChunked(t, cmd.Stdout, r.dump, 7)
		case "find-generic-password":
			password, ok := r.passwords[cmd.Args[2]]
			if !ok {
				return &sys.ExitError{Path: cmd.Path, Code: keychainNotFound}
			}
			io.WriteString(cmd.Stderr, "keychain: \"/Users/dev/Library/Keychains/login.keychain-db\"\n")
			io.WriteString(cmd.Stderr, password+"\n")
		case "delete-generic-password":
			return r.deleteErr
		}
		return nil
	}
	return r
}

func TestKeychainBackend_GetLazilyFetchesPassword(t *testing.T) {
	account := credentials.EncodeTarget("http://h", "u")
	runner := newKeychainRunner(t,
		keychainItem("other-app", "someone")+keychainItem("teamcity:", account),
		map[string]string{account: `password: "p"`})
	b := NewKeychainBackend("", "teamcity:", runner, newTestLogger())

	creds, err := b.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.True(t, credentials.New("http://h", "u", "p").Equal(*creds))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, DefaultSecurityPath, runner.calls[0].Path)
	assert.Equal(t, []string{"dump-keychain"}, runner.calls[0].Args)
	assert.Equal(t,
		[]string{"find-generic-password", "-a", account, "-s", "teamcity:", "-g"},
		runner.calls[1].Args)
}

func TestKeychainBackend_GetNone(t *testing.T) {
	runner := newKeychainRunner(t, keychainItem("other-app", "someone"), nil)
	b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

	creds, err := b.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, creds)
	assert.Empty(t, runner.argsOf("find-generic-password"), "no password lookup without a match")
}

func TestKeychainBackend_GetAmbiguousFirstWins(t *testing.T) {
	var logs bytes.Buffer
	first := credentials.EncodeTarget("http://first", "a")
	second := credentials.EncodeTarget("http://second", "b")
	runner := newKeychainRunner(t,
		keychainItem("teamcity:", first)+keychainItem("teamcity:", second),
		map[string]string{first: `password: "1"`, second: `password: "2"`})
	b := NewKeychainBackend("security", "teamcity:", runner, newCapturingLogger(&logs))

	creds, err := b.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "http://first", creds.ServerURL)
	assert.Equal(t, "1", creds.Password)
	assert.Equal(t, 1, countWarnings(&logs))

	lookups := runner.argsOf("find-generic-password")
	require.Len(t, lookups, 1, "only the selected account's password is read")
	assert.Equal(t, first, lookups[0][2])
}

func TestKeychainBackend_GetMalformedAccount(t *testing.T) {
	runner := newKeychainRunner(t, keychainItem("teamcity:", "not-a-target"),
		map[string]string{"not-a-target": `password: "p"`})
	b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, credentials.ErrMalformedTarget)
}

func TestKeychainBackend_DumpFailure(t *testing.T) {
	runner := &fakeRunner{handle: func(cmd sys.Command) error {
		return &sys.ExitError{Path: cmd.Path, Code: 51}
	}}
	b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, ErrBackend)
}

func TestKeychainBackend_Set(t *testing.T) {
	runner := &fakeRunner{}
	b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

	require.NoError(t, b.Set(context.Background(), credentials.New("http://h", "u", "p")))

	require.Len(t, runner.calls, 1)
	assert.Equal(t,
		[]string{"add-generic-password", "-a", "687474703a2f2f68|75", "-s", "teamcity:", "-w", "p", "-U"},
		runner.calls[0].Args)
}

func TestKeychainBackend_RemoveEachItem(t *testing.T) {
	first := credentials.EncodeTarget("http://first", "a")
	second := credentials.EncodeTarget("http://second", "b")
	runner := newKeychainRunner(t,
		keychainItem("teamcity:", first)+keychainItem("other-app", "x")+keychainItem("teamcity:", second),
		nil)
	b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

	require.NoError(t, b.Remove(context.Background()))

	deletes := runner.argsOf("delete-generic-password")
	require.Len(t, deletes, 2)
	assert.Equal(t, []string{"delete-generic-password", "-a", first, "-s", "teamcity:"}, deletes[0])
	assert.Equal(t, []string{"delete-generic-password", "-a", second, "-s", "teamcity:"}, deletes[1])
}

func TestKeychainBackend_RemoveIdempotent(t *testing.T) {
	t.Run("nothing stored", func(t *testing.T) {
		runner := newKeychainRunner(t, "", nil)
		b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

		assert.NoError(t, b.Remove(context.Background()))
		assert.Empty(t, runner.argsOf("delete-generic-password"))
	})

	t.Run("item vanished", func(t *testing.T) {
		runner := newKeychainRunner(t, keychainItem("teamcity:", "68|75"), nil)
		runner.deleteErr = &sys.ExitError{Code: keychainNotFound}
		b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

		assert.NoError(t, b.Remove(context.Background()))
	})

	t.Run("other failure", func(t *testing.T) {
		runner := newKeychainRunner(t, keychainItem("teamcity:", "68|75"), nil)
		runner.deleteErr = &sys.ExitError{Code: 1}
		b := NewKeychainBackend("security", "teamcity:", runner, newTestLogger())

		assert.ErrorIs(t, b.Remove(context.Background()), ErrBackend)
	})
}

func TestParsePassword(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{name: "quoted", output: "password: \"s3cret\"\n", want: "s3cret"},
		{name: "escaped backslash", output: `password: "a\134b"`, want: `a\b`},
		{name: "hex with text", output: "password: 0x615C62  \"a\\134b\"\n", want: `a\b`},
		{name: "hex only", output: "password: 0x70617373\n", want: "pass"},
		{name: "among other lines", output: "keychain: \"k\"\nclass: \"genp\"\npassword: \"x y\"\n", want: "x y"},
		{name: "no password line", output: "keychain: \"k\"\n", want: ""},
		{name: "empty password", output: "password: \n", want: ""},
		{name: "bad hex", output: "password: 0x7\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePassword(tt.output)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedSecret)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
