package snapshots

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"marketfront/core/session"
	"marketfront/core/types"
	"marketfront/storage"
)

var owner = common.HexToAddress("0x00000000000000000000000000000000000000b2")

func sampleState() session.State {
	return session.State{
		Account: owner,
		Status:  types.StatusShopOwner,
		Users:   []types.User{},
		Storefronts: []types.Storefront{{
			Owner: owner, Name: "Fruit store", Balance: uint256.NewInt(1_000_000_000_000_000_000), ProductCount: 1,
		}},
		Selection: &session.Selection{Owner: owner, Index: 0, Name: "Fruit store"},
		Products: []types.Product{{
			Name: "apple", Price: uint256.NewInt(10), Quantity: 4, ContentID: "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
		}},
		Upload:  &session.Upload{ProductIndex: 0, Size: 3, Data: []byte("png")},
		Version: 7,
	}
}

func TestSaveLoadBolt(t *testing.T) {
	store, err := Open(storage.BackendBolt, filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(owner)
	require.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Save(owner, sampleState()))
	got, err := store.Load(owner)
	require.NoError(t, err)
	require.Equal(t, types.StatusShopOwner, got.Status)
	require.Equal(t, uint64(7), got.Version)
	require.Nil(t, got.Upload)
	require.Len(t, got.Storefronts, 1)
	require.Equal(t, "1000000000000000000", got.Storefronts[0].Balance.Dec())
	require.Equal(t, "Fruit store", got.Selection.Name)
	require.Equal(t, sampleState().Products[0].ContentID, got.Products[0].ContentID)
}

func TestSessionRestoresFromStore(t *testing.T) {
	store := New(storage.NewMemDB())
	require.NoError(t, store.Save(owner, sampleState()))
	restored, err := store.Load(owner)
	require.NoError(t, err)

	s := session.New(owner, nil, session.WithRestoredState(restored), session.WithSnapshotStore(store))
	snap := s.Snapshot()
	require.Equal(t, uint64(7), snap.Version)
	require.Equal(t, "apple", snap.Products[0].Name)

	require.NoError(t, store.Delete(owner))
	_, err = store.Load(owner)
	require.ErrorIs(t, err, ErrNotFound)
}
