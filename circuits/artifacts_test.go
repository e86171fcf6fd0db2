package circuits

import (
	"bytes"
	"context"
	"crypto/sha256"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

var (
	dummyPath       = "tokenstate.vk"
	dummyKeyContent = []byte("dummy verifying key content")
)

func testDummyKeyServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, dummyPath, time.Now(), bytes.NewReader(dummyKeyContent))
	}))
}

func TestDownloadAndLoadKey(t *testing.T) {
	c := qt.New(t)
	store, err := NewArtifactStore(t.TempDir())
	c.Assert(err, qt.IsNil)
	// create a dummy key server
	server := testDummyKeyServer()
	defer server.Close()
	// get the expected hash
	hashFn := sha256.New()
	hashFn.Write(dummyKeyContent)
	expectedHash := hashFn.Sum(nil)
	// create a dummy key
	remoteURL, err := url.JoinPath(server.URL, dummyPath)
	c.Assert(err, qt.IsNil)
	dummyKey := &Artifact{
		RemoteURL: remoteURL,
		Hash:      expectedHash,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// not downloaded yet
	c.Assert(dummyKey.Load(store), qt.ErrorMatches, "no content found")
	// download and load
	c.Assert(dummyKey.Download(ctx, store), qt.IsNil)
	c.Assert(dummyKey.Load(store), qt.IsNil)
	c.Assert([]byte(dummyKey.Content), qt.DeepEquals, dummyKeyContent)
	// a second download is a noop
	c.Assert(dummyKey.Download(ctx, store), qt.IsNil)
	// wrong hash
	wrongKey := &Artifact{RemoteURL: remoteURL, Hash: []byte("wrong hash")}
	c.Assert(wrongKey.Download(ctx, store), qt.ErrorMatches, "hash mismatch.*")
	c.Assert(wrongKey.Load(store), qt.IsNotNil)
}

func TestArtifactStorePut(t *testing.T) {
	c := qt.New(t)
	store, err := NewArtifactStore(t.TempDir())
	c.Assert(err, qt.IsNil)

	hash, err := store.Put(dummyKeyContent)
	c.Assert(err, qt.IsNil)
	expected := sha256.Sum256(dummyKeyContent)
	c.Assert(hash, qt.DeepEquals, expected[:])

	// storing the same content twice returns the same hash
	again, err := store.Put(dummyKeyContent)
	c.Assert(err, qt.IsNil)
	c.Assert(again, qt.DeepEquals, hash)

	artifacts := NewCircuitArtifacts(nil, nil, &Artifact{Hash: hash})
	c.Assert(artifacts.LoadAll(store), qt.IsNil)
	c.Assert([]byte(artifacts.VerifyingKey()), qt.DeepEquals, dummyKeyContent)
	c.Assert(artifacts.ProvingKey(), qt.IsNil)

	_, err = store.Put(nil)
	c.Assert(err, qt.ErrorMatches, "empty artifact")
}

func TestManifestRoundTrip(t *testing.T) {
	c := qt.New(t)
	store, err := NewArtifactStore(t.TempDir())
	c.Assert(err, qt.IsNil)

	ccsHash, err := store.Put([]byte("ccs"))
	c.Assert(err, qt.IsNil)
	pkHash, err := store.Put([]byte("pk"))
	c.Assert(err, qt.IsNil)
	vkHash, err := store.Put([]byte("vk"))
	c.Assert(err, qt.IsNil)

	m := &Manifest{
		Version:          "v1",
		Curve:            Curve.String(),
		CircuitHash:      ccsHash,
		ProvingKeyHash:   pkHash,
		VerifyingKeyHash: vkHash,
	}
	c.Assert(store.WriteManifest(m), qt.IsNil)
	read, err := store.ReadManifest("v1")
	c.Assert(err, qt.IsNil)
	c.Assert(read.VerifyingKeyHash, qt.DeepEquals, m.VerifyingKeyHash)

	artifacts := read.Artifacts("")
	c.Assert(artifacts.LoadAll(store), qt.IsNil)
	c.Assert(string(artifacts.CircuitDefinition()), qt.Equals, "ccs")
	c.Assert(string(artifacts.ProvingKey()), qt.Equals, "pk")
	c.Assert(string(artifacts.VerifyingKey()), qt.Equals, "vk")

	remote := read.Artifacts("https://example.com/circuits")
	c.Assert(remote.verifyingKey.RemoteURL, qt.Equals, "https://example.com/circuits/"+m.VerifyingKeyHash.String())

	verifierOnly := read.VerifierArtifacts("")
	c.Assert(verifierOnly.LoadAll(store), qt.IsNil)
	c.Assert(verifierOnly.CircuitDefinition(), qt.IsNil)
	c.Assert(verifierOnly.ProvingKey(), qt.IsNil)
	c.Assert(string(verifierOnly.VerifyingKey()), qt.Equals, "vk")

	_, err = store.ReadManifest("missing")
	c.Assert(err, qt.IsNotNil)
}
