package state

import (
	"fmt"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/tokenzk/types"
)

// ArboProof stores the proof in arbo native types
type ArboProof struct {
	// Key+Value hashed through Siblings path, should produce Root hash
	Root           types.HexBytes   `json:"root"`
	Siblings       []types.HexBytes `json:"siblings"`
	PackedSiblings types.HexBytes   `json:"packedSiblings"`
	Key            types.HexBytes   `json:"key"`
	Value          types.HexBytes   `json:"value"`
	Existence      bool             `json:"existence"`
}

// GenArboProof generates the proof of the key k in the tree t.
func GenArboProof(t *arbo.Tree, k []byte) (*ArboProof, error) {
	root, err := t.Root()
	if err != nil {
		return nil, err
	}
	leafK, leafV, packedSiblings, existence, err := t.GenProof(k)
	if err != nil {
		return nil, err
	}
	unpackedSiblings, err := arbo.UnpackSiblings(HashFunc, packedSiblings)
	if err != nil {
		return nil, err
	}
	siblings := make([]types.HexBytes, len(unpackedSiblings))
	for i := range unpackedSiblings {
		siblings[i] = unpackedSiblings[i]
	}
	return &ArboProof{
		Root:           root,
		Siblings:       siblings,
		PackedSiblings: packedSiblings,
		Key:            leafK,
		Value:          leafV,
		Existence:      existence,
	}, nil
}

// Verify checks that Key and Value belong to Root. Proofs of non inclusion
// never verify.
func (p *ArboProof) Verify() (bool, error) {
	if !p.Existence {
		return false, nil
	}
	if len(p.Key) > MaxKeyLen {
		return false, fmt.Errorf("key too long: %d bytes", len(p.Key))
	}
	return arbo.CheckProof(HashFunc, p.Key, p.Value, p.Root, p.PackedSiblings)
}
