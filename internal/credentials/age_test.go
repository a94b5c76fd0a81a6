package credentials_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sdcli/internal/config"
	"sdcli/internal/credentials"
	"sdcli/internal/model"
)

func newTestAgeStore(t *testing.T) *credentials.AgeStore {
	t.Helper()

	base := t.TempDir()
	store := credentials.NewAgeStore(config.CredentialsConfig{
		Dir:           filepath.Join(base, "credentials"),
		RecipientPath: filepath.Join(base, "keys", "sdcli.pub"),
		IdentityPath:  filepath.Join(base, "keys", "sdcli.key"),
	})
	if err := store.Setup(); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return store
}

func TestAgeStore_Setup(t *testing.T) {
	t.Run("generates the key pair", func(t *testing.T) {
		base := t.TempDir()
		recipientPath := filepath.Join(base, "keys", "sdcli.pub")
		identityPath := filepath.Join(base, "keys", "sdcli.key")
		store := credentials.NewAgeStore(config.CredentialsConfig{
			Dir:           filepath.Join(base, "credentials"),
			RecipientPath: recipientPath,
			IdentityPath:  identityPath,
		})

		if store.IsConfigured() {
			t.Error("IsConfigured() = true before Setup()")
		}
		if err := store.Setup(); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if !store.IsConfigured() {
			t.Error("IsConfigured() = false after Setup()")
		}

		recipient, err := os.ReadFile(recipientPath)
		if err != nil {
			t.Fatalf("reading recipient: %v", err)
		}
		if !strings.HasPrefix(string(recipient), "age1") {
			t.Errorf("recipient = %q, want age1 prefix", recipient)
		}

		info, err := os.Stat(identityPath)
		if err != nil {
			t.Fatalf("stat identity: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("identity permissions = %o, want 0600", perm)
		}
	})

	t.Run("refuses to overwrite existing keys", func(t *testing.T) {
		store := newTestAgeStore(t)
		if err := store.Setup(); err == nil {
			t.Error("second Setup() error = nil, want error")
		}
	})
}

func TestAgeStore(t *testing.T) {
	t.Run("put, get, delete round-trip", func(t *testing.T) {
		store := newTestAgeStore(t)

		in := &model.Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "very-secret"}
		if err := store.Put("ref-1", in); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		out, err := store.Get("ref-1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if out == nil {
			t.Fatal("Get() = nil, want credentials")
		}
		if out.AccessKeyID != in.AccessKeyID || out.SecretAccessKey != in.SecretAccessKey {
			t.Errorf("Get() = %+v, want %+v", out, in)
		}

		if err := store.Delete("ref-1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		out, err = store.Get("ref-1")
		if err != nil {
			t.Fatalf("Get() after delete error = %v", err)
		}
		if out != nil {
			t.Errorf("Get() after delete = %+v, want nil", out)
		}
	})

	t.Run("get of unknown ref returns nil", func(t *testing.T) {
		store := newTestAgeStore(t)

		out, err := store.Get("ref-unknown")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if out != nil {
			t.Errorf("Get() = %+v, want nil", out)
		}
	})

	t.Run("delete of unknown ref is a no-op", func(t *testing.T) {
		store := newTestAgeStore(t)
		if err := store.Delete("ref-unknown"); err != nil {
			t.Errorf("Delete() error = %v, want nil", err)
		}
	})

	t.Run("entries are encrypted at rest", func(t *testing.T) {
		base := t.TempDir()
		dir := filepath.Join(base, "credentials")
		store := credentials.NewAgeStore(config.CredentialsConfig{
			Dir:           dir,
			RecipientPath: filepath.Join(base, "keys", "sdcli.pub"),
			IdentityPath:  filepath.Join(base, "keys", "sdcli.key"),
		})
		if err := store.Setup(); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}

		if err := store.Put("ref-1", &model.Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "very-secret"}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		raw, err := os.ReadFile(filepath.Join(dir, "ref-1.age"))
		if err != nil {
			t.Fatalf("reading entry file: %v", err)
		}
		if strings.Contains(string(raw), "very-secret") {
			t.Error("secret stored in plaintext")
		}

		info, err := os.Stat(filepath.Join(dir, "ref-1.age"))
		if err != nil {
			t.Fatalf("stat entry file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("entry permissions = %o, want 0600", perm)
		}
	})

	t.Run("put without keys reports setup hint", func(t *testing.T) {
		base := t.TempDir()
		store := credentials.NewAgeStore(config.CredentialsConfig{
			Dir:           filepath.Join(base, "credentials"),
			RecipientPath: filepath.Join(base, "keys", "sdcli.pub"),
			IdentityPath:  filepath.Join(base, "keys", "sdcli.key"),
		})

		err := store.Put("ref-1", &model.Credentials{AccessKeyID: "a", SecretAccessKey: "b"})
		if err == nil {
			t.Fatal("Put() error = nil, want error")
		}
		if !strings.Contains(err.Error(), "config init") {
			t.Errorf("Put() error = %v, want config init hint", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	store := credentials.NewMemoryStore()

	if err := store.Put("ref-1", &model.Credentials{AccessKeyID: "a", SecretAccessKey: "b"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	out, err := store.Get("ref-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if out == nil || out.AccessKeyID != "a" {
		t.Errorf("Get() = %+v, want access key a", out)
	}

	missing, err := store.Get("ref-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if missing != nil {
		t.Errorf("Get() of unknown ref = %+v, want nil", missing)
	}

	if err := store.Delete("ref-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	out, err = store.Get("ref-1")
	if err != nil {
		t.Fatalf("Get() after delete error = %v", err)
	}
	if out != nil {
		t.Errorf("Get() after delete = %+v, want nil", out)
	}
}

func TestNewStoreFromConfig(t *testing.T) {
	t.Run("defaults to age", func(t *testing.T) {
		base := t.TempDir()
		store, err := credentials.NewStoreFromConfig(config.CredentialsConfig{
			Dir:           filepath.Join(base, "credentials"),
			RecipientPath: filepath.Join(base, "keys", "sdcli.pub"),
			IdentityPath:  filepath.Join(base, "keys", "sdcli.key"),
		})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := store.(*credentials.AgeStore); !ok {
			t.Errorf("NewStoreFromConfig() = %T, want *AgeStore", store)
		}
	})

	t.Run("age requires paths", func(t *testing.T) {
		if _, err := credentials.NewStoreFromConfig(config.CredentialsConfig{Type: "age"}); err == nil {
			t.Error("NewStoreFromConfig() error = nil, want missing path error")
		}
	})

	t.Run("memory", func(t *testing.T) {
		store, err := credentials.NewStoreFromConfig(config.CredentialsConfig{Type: "memory"})
		if err != nil {
			t.Fatalf("NewStoreFromConfig() error = %v", err)
		}
		if _, ok := store.(*credentials.MemoryStore); !ok {
			t.Errorf("NewStoreFromConfig() = %T, want *MemoryStore", store)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		if _, err := credentials.NewStoreFromConfig(config.CredentialsConfig{Type: "vault"}); err == nil {
			t.Error("NewStoreFromConfig() error = nil, want unknown type error")
		}
	})
}
