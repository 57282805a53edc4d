package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/licensegate/adapters/store"
	"github.com/layer-3/licensegate/adapters/tokenizer"
	"github.com/layer-3/licensegate/core"
	"github.com/layer-3/licensegate/internal/eth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productID = big.NewInt(0x6254)

type licenseTable struct {
	mu      sync.Mutex
	holders map[common.Address]bool
	err     error
}

func (l *licenseTable) HasLicense(ctx context.Context, owner common.Address, id *big.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	return id.Cmp(productID) == 0 && l.holders[owner], nil
}

func (l *licenseTable) set(owner common.Address, has bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.holders[owner] = has
}

type recordingPublisher struct {
	mu      sync.Mutex
	logins  []string
	logouts []string
	err     error
}

func (p *recordingPublisher) PublishLogin(ctx context.Context, address common.Address, productID *big.Int, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, address.Hex())
	return p.err
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, address common.Address, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return p.err
}

type fixture struct {
	svc      *AuthService
	licenses *licenseTable
	events   *recordingPublisher
	key      *ecdsa.PrivateKey
	address  common.Address
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	jwtKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	f := &fixture{
		licenses: &licenseTable{holders: map[common.Address]bool{}},
		events:   &recordingPublisher{},
		key:      walletKey,
		address:  crypto.PubkeyToAddress(walletKey.PublicKey),
	}
	f.svc = NewAuthService(tokenizer.NewJWTTokenizer(jwtKey), store.NewMemoryStore(), f.events, f.licenses, productID, opts...)
	return f
}

func (f *fixture) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := eth.SignPersonalMessage(f.key, []byte(message))
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func (f *fixture) login(t *testing.T) (string, string) {
	t.Helper()
	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	access, refresh, err := f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	require.NoError(t, err)
	return access, refresh
}

func TestLoginWithLicense(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	assert.Contains(t, message, "Authenticate your wallet with address: "+f.address.Hex()+"\nNonce: ")

	access, refresh, err := f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	require.NoError(t, err)
	assert.NotEmpty(t, refresh)

	session, err := f.svc.ValidateAccessToken(context.Background(), access)
	require.NoError(t, err)
	assert.Equal(t, f.address, session.Address)
	assert.Equal(t, 0, session.ProductID.Cmp(productID))
	assert.Equal(t, []string{f.address.Hex()}, f.events.logins)
}

func TestLoginWithoutLicense(t *testing.T) {
	f := newFixture(t)

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	assert.True(t, errors.Is(err, core.ErrNoLicense))
	assert.Empty(t, f.events.logins)
}

func TestLoginRejectsReplay(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	sig := f.sign(t, message)

	_, _, err = f.svc.Login(context.Background(), challenge, sig, f.address)
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), challenge, sig, f.address)
	assert.True(t, errors.Is(err, core.ErrChallengeUsed))
}

func TestLoginRejectsBadSignatures(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)
	other, err := crypto.GenerateKey()
	require.NoError(t, err)

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)

	foreign, err := eth.SignPersonalMessage(other, []byte(message))
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), challenge, hexutil.Encode(foreign), f.address)
	assert.True(t, errors.Is(err, core.ErrInvalidSignature))

	_, _, err = f.svc.Login(context.Background(), challenge, f.sign(t, "some other message"), f.address)
	assert.True(t, errors.Is(err, core.ErrInvalidSignature))

	_, _, err = f.svc.Login(context.Background(), challenge, "0xdeadbeef", f.address)
	assert.True(t, errors.Is(err, core.ErrInvalidSignature))

	otherAddress := crypto.PubkeyToAddress(other.PublicKey)
	_, _, err = f.svc.Login(context.Background(), challenge, hexutil.Encode(foreign), otherAddress)
	assert.True(t, errors.Is(err, core.ErrInvalidSignature), "challenge is bound to the requesting address")

	// the nonce was never consumed, so the genuine signature still works
	_, _, err = f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	assert.NoError(t, err)
}

func TestLoginRejectsGarbageChallenge(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Login(context.Background(), "not-a-jwt", "0x00", f.address)
	assert.True(t, errors.Is(err, core.ErrInvalidToken))
}

func TestExpiredChallenge(t *testing.T) {
	f := newFixture(t, WithTTLs(time.Second, 0, 0))
	f.licenses.set(f.address, true)

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	time.Sleep(2100 * time.Millisecond)

	_, _, err = f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	assert.True(t, errors.Is(err, core.ErrTokenExpired))
}

func TestRefreshRotatesAndRechecksLicense(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)
	ctx := context.Background()

	access, refresh := f.login(t)

	newAccess, newRefresh, err := f.svc.Refresh(ctx, refresh)
	require.NoError(t, err)
	assert.NotEqual(t, refresh, newRefresh)

	// old refresh token is gone, and so are access tokens tied to it
	_, _, err = f.svc.Refresh(ctx, refresh)
	assert.True(t, errors.Is(err, core.ErrTokenInvalidated))
	_, err = f.svc.ValidateAccessToken(ctx, access)
	assert.True(t, errors.Is(err, core.ErrTokenInvalidated))
	_, err = f.svc.ValidateAccessToken(ctx, newAccess)
	require.NoError(t, err)

	f.licenses.set(f.address, false)
	_, _, err = f.svc.Refresh(ctx, newRefresh)
	assert.True(t, errors.Is(err, core.ErrNoLicense))
}

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)
	ctx := context.Background()

	access, refresh := f.login(t)
	require.NoError(t, f.svc.Logout(ctx, refresh))

	_, err := f.svc.ValidateAccessToken(ctx, access)
	assert.True(t, errors.Is(err, core.ErrTokenInvalidated))
	_, _, err = f.svc.Refresh(ctx, refresh)
	assert.True(t, errors.Is(err, core.ErrTokenInvalidated))
	assert.Len(t, f.events.logouts, 1)
}

func TestPublisherFailureDoesNotFailLogin(t *testing.T) {
	f := newFixture(t)
	f.licenses.set(f.address, true)
	f.events.err = errors.New("broker down")

	access, refresh := f.login(t)
	assert.NotEmpty(t, access)
	assert.NoError(t, f.svc.Logout(context.Background(), refresh))
}

func TestLicenseCheckErrorPropagates(t *testing.T) {
	f := newFixture(t)
	f.licenses.err = errors.New("rpc unavailable")

	challenge, message, err := f.svc.CreateChallenge(f.address)
	require.NoError(t, err)
	_, _, err = f.svc.Login(context.Background(), challenge, f.sign(t, message), f.address)
	require.Error(t, err)
	assert.False(t, errors.Is(err, core.ErrNoLicense))
}
