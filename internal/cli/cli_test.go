package cli

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/llm"
	"github.com/dmitrijs2005/gophchat/internal/reveal"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubConfig(t *testing.T, mutate func(*config.Config)) {
	t.Helper()
	orig := loadConfig
	t.Cleanup(func() { loadConfig = orig })

	loadConfig = func(string) (*config.Config, error) {
		c := &config.Config{}
		c.LoadDefaults()
		if mutate != nil {
			mutate(c)
		}
		return c, nil
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type fakeDeleter struct {
	got string
	res *services.DeletedUser
	err error
}

func (f *fakeDeleter) DeleteUserByUsername(ctx context.Context, userName string) (*services.DeletedUser, error) {
	f.got = userName
	return f.res, f.err
}

func stubUsers(t *testing.T, d *fakeDeleter) *bool {
	t.Helper()
	orig := openUsers
	t.Cleanup(func() { openUsers = orig })

	closed := false
	openUsers = func(*config.Config) (userDeleter, func() error, error) {
		return d, func() error { closed = true; return nil }, nil
	}
	return &closed
}

func TestClearUser(t *testing.T) {
	stubConfig(t, nil)
	d := &fakeDeleter{res: &services.DeletedUser{User: &models.User{ID: "u-1", UserName: "alice"}, Chats: 4}}
	closed := stubUsers(t, d)

	out, err := run(t, "clear-user", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", d.got)
	assert.Contains(t, out, `deleted user "alice" (id u-1) and 4 chat(s)`)
	assert.True(t, *closed)
}

func TestClearUser_NotFound(t *testing.T) {
	stubConfig(t, nil)
	stubUsers(t, &fakeDeleter{err: common.ErrorNotFound})

	_, err := run(t, "clear-user", "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `user "ghost" not found`)
}

func TestClearUser_RejectsBadUsername(t *testing.T) {
	stubConfig(t, nil)
	d := &fakeDeleter{}
	stubUsers(t, d)

	_, err := run(t, "clear-user", string(bytes.Repeat([]byte("x"), services.MaxUsernameLength+1)))
	assert.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, d.got)

	_, err = run(t, "clear-user")
	assert.Error(t, err)
}

func TestAuthProblems(t *testing.T) {
	good := "0123456789abcdef0123456789abcdef"

	tests := []struct {
		name   string
		secret string
		url    string
		want   int
	}{
		{"all good", good, "https://chat.example.com", 0},
		{"empty secret", "", "https://chat.example.com", 1},
		{"default secret", config.DefaultSecretKey, "https://chat.example.com", 1},
		{"short secret", "short", "https://chat.example.com", 1},
		{"missing url", good, "", 1},
		{"relative url", good, "/chat", 1},
		{"plain http", good, "http://chat.example.com", 1},
		{"everything wrong", "", "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &config.Config{SecretKey: tt.secret, PublicURL: tt.url}
			assert.Len(t, authProblems(c), tt.want)
		})
	}
}

func TestVerifyAuth(t *testing.T) {
	stubConfig(t, nil)
	out, err := run(t, "verify-auth")
	require.Error(t, err)
	assert.Contains(t, out, "development default")
	assert.Contains(t, out, "public URL is not set")

	stubConfig(t, func(c *config.Config) {
		c.SecretKey = "0123456789abcdef0123456789abcdef"
		c.PublicURL = "https://chat.example.com"
	})
	out, err = run(t, "verify-auth")
	require.NoError(t, err)
	assert.Contains(t, out, "OK")
}

func TestMigrate(t *testing.T) {
	stubConfig(t, func(c *config.Config) { c.DatabaseDSN = "postgres://x" })
	orig := runMigrations
	t.Cleanup(func() { runMigrations = orig })

	var dsn string
	runMigrations = func(ctx context.Context, c *config.Config) error {
		dsn = c.DatabaseDSN
		return nil
	}
	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)
	assert.Contains(t, out, "migrations applied")

	runMigrations = func(context.Context, *config.Config) error { return errors.New("locked") }
	_, err = run(t, "migrate")
	assert.ErrorContains(t, err, "locked")
}

type fakeStreamer struct {
	model  string
	prompt string
	chunks []string
	err    error
}

func (f *fakeStreamer) StreamText(ctx context.Context, modelID string, msgs []llm.Message) iter.Seq2[string, error] {
	f.model = modelID
	f.prompt = msgs[len(msgs)-1].Content
	return func(yield func(string, error) bool) {
		for _, c := range f.chunks {
			if !yield(c, nil) {
				return
			}
		}
		if f.err != nil {
			yield("", f.err)
		}
	}
}

func stubStreamer(t *testing.T, s *fakeStreamer) {
	t.Helper()
	orig := newStreamer
	t.Cleanup(func() { newStreamer = orig })
	newStreamer = func(*config.Config) textStreamer { return s }
}

func TestAsk_StreamsReply(t *testing.T) {
	stubConfig(t, nil)
	s := &fakeStreamer{chunks: []string{"Hel", "lo, ", "世界"}}
	stubStreamer(t, s)

	out, err := run(t, "ask", "say", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello, 世界\n", out)
	assert.Equal(t, "say hi", s.prompt)
	assert.Equal(t, llm.ChatModelID, s.model)
}

func TestAsk_BufferedReveal(t *testing.T) {
	stubConfig(t, nil)
	stubStreamer(t, &fakeStreamer{chunks: []string{"typewriter ", "output"}})

	orig := revealOptions
	t.Cleanup(func() { revealOptions = orig })
	revealOptions = []reveal.Option{reveal.WithAnimation(true), reveal.WithInterval(time.Millisecond), reveal.WithTickBudget(4)}

	out, err := run(t, "ask", "--buffer", "-m", llm.ReasoningModelID, "go")
	require.NoError(t, err)
	assert.Equal(t, "typewriter output\n", out)
}

func TestAsk_StreamError(t *testing.T) {
	stubConfig(t, nil)
	stubStreamer(t, &fakeStreamer{chunks: []string{"part"}, err: llm.ErrUnknownModel})

	_, err := run(t, "ask", "x")
	assert.ErrorIs(t, err, llm.ErrUnknownModel)
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.toml")
	require.NoError(t, os.WriteFile(path, []byte(`http_addr = ":4000"`+"\n"), 0o600))

	c, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":4000", c.HTTPAddr)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
