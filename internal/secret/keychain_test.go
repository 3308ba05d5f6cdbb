package secret

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSecurity mimics the `security` tool over an in-memory item map.
type fakeSecurity struct {
	items map[string]string
	calls [][]string
	fail  error
}

func (f *fakeSecurity) run(_ context.Context, args ...string) ([]byte, int, error) {
	f.calls = append(f.calls, args)
	if f.fail != nil {
		return nil, -1, f.fail
	}
	flag := func(name string) string {
		for i := 0; i+1 < len(args); i++ {
			if args[i] == name {
				return args[i+1]
			}
		}
		return ""
	}
	item := flag("-s") + "/" + flag("-a")
	switch args[0] {
	case "add-generic-password":
		f.items[item] = flag("-w")
		return nil, 0, nil
	case "find-generic-password":
		v, ok := f.items[item]
		if !ok {
			return []byte("security: The specified item could not be found in the keychain.\n"), keychainNotFound, nil
		}
		return []byte(v + "\n"), 0, nil
	case "delete-generic-password":
		if _, ok := f.items[item]; !ok {
			return nil, keychainNotFound, nil
		}
		delete(f.items, item)
		return nil, 0, nil
	}
	return []byte("unknown command"), 1, nil
}

func newFakeKeychain(service string) (*KeychainStore, *fakeSecurity) {
	f := &fakeSecurity{items: map[string]string{}}
	k := NewKeychainStore(service)
	k.run = f.run
	return k, f
}

func TestKeychainStore_RoundTrip(t *testing.T) {
	k, f := newFakeKeychain("")

	v, err := k.Get(APITokenKey)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, k.Set(APITokenKey, []byte("tok")))
	v, err = k.Get(APITokenKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("tok"), v)
	assert.Contains(t, f.items, DefaultKeychainService+"/"+APITokenKey)

	require.NoError(t, k.Delete(APITokenKey))
	require.NoError(t, k.Delete(APITokenKey), "deleting a missing item is fine")
	v, err = k.Get(APITokenKey)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestKeychainStore_ServiceNameScopesItems(t *testing.T) {
	k, f := newFakeKeychain("postdesk-staging")
	require.NoError(t, k.Set("k", []byte("v")))
	assert.Equal(t, map[string]string{"postdesk-staging/k": "v"}, f.items)
}

func TestKeychainStore_ReportsFailures(t *testing.T) {
	k, f := newFakeKeychain("")
	f.fail = errors.New("exec: \"security\": not found")

	_, err := k.Get("k")
	assert.ErrorContains(t, err, "keychain get")
	assert.ErrorContains(t, k.Set("k", []byte("v")), "keychain set")
	assert.ErrorContains(t, k.Delete("k"), "keychain delete")

	// a locked keychain still falls back to the configured token
	assert.Equal(t, "from-config", Token(k, "from-config"))
}

func TestKeychainStore_NonZeroStatusIsAnError(t *testing.T) {
	k, _ := newFakeKeychain("")
	k.run = func(context.Context, ...string) ([]byte, int, error) {
		return []byte("User interaction is not allowed.\n"), 36, nil
	}
	_, err := k.Get("k")
	assert.ErrorContains(t, err, "User interaction is not allowed.")
	assert.ErrorContains(t, err, "status 36")
}
