package stateRoot

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Layr-Labs/staking-ledger/pkg/rewardLedger"
	"github.com/Layr-Labs/staking-ledger/pkg/storage"
	"github.com/Layr-Labs/staking-ledger/pkg/utils"
	pkgErrors "github.com/pkg/errors"
	"github.com/wealdtech/go-merkletree/v2"
	"github.com/wealdtech/go-merkletree/v2/keccak256"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SlotID string

type StateRoot string

var (
	MerkleLeafPrefix_Sequence   = []byte{0x00}
	MerkleLeafPrefix_Pool       = []byte{0x01}
	MerkleLeafPrefix_Depositors = []byte{0x02}
)

type MerkleTreeInput struct {
	SlotID SlotID
	Value  []byte
}

type LedgerStateRoot struct {
	Sequence  uint64
	StateRoot StateRoot
}

// Generator merkleizes the pool and every active depositor into a single keccak256 root.
type Generator struct {
	store  rewardLedger.StateStore
	db     *gorm.DB
	logger *zap.Logger
}

// NewGenerator returns a state root generator. db may be nil, in which case roots are not persisted.
func NewGenerator(store rewardLedger.StateStore, db *gorm.DB, l *zap.Logger) *Generator {
	return &Generator{
		store:  store,
		db:     db,
		logger: l,
	}
}

func (g *Generator) GenerateStateRoot(ctx context.Context) (*LedgerStateRoot, error) {
	var result *LedgerStateRoot
	err := g.store.View(ctx, func(ctx context.Context, r rewardLedger.StateReader) error {
		pool, err := r.GetPool(ctx)
		if err != nil {
			return err
		}
		depositors, err := r.ListDepositors(ctx)
		if err != nil {
			return err
		}
		root, err := ComputeStateRoot(pool, depositors)
		if err != nil {
			return err
		}
		result = &LedgerStateRoot{Sequence: pool.Sequence, StateRoot: root}
		return nil
	})
	if err != nil {
		return nil, err
	}
	g.logger.Sugar().Debugw("Generated state root",
		zap.Uint64("sequence", result.Sequence),
		zap.String("stateRoot", string(result.StateRoot)),
	)
	return result, nil
}

// GenerateAndWriteStateRoot computes the current root and records it for its sequence.
func (g *Generator) GenerateAndWriteStateRoot(ctx context.Context) (*LedgerStateRoot, error) {
	root, err := g.GenerateStateRoot(ctx)
	if err != nil {
		return nil, err
	}
	if g.db == nil {
		return root, nil
	}
	row := &storage.StateRoot{
		Sequence:  root.Sequence,
		StateRoot: string(root.StateRoot),
	}
	res := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sequence"}},
		DoNothing: true,
	}).Create(row)
	if res.Error != nil {
		return nil, pkgErrors.Wrapf(res.Error, "failed to write state root for sequence %d", root.Sequence)
	}
	return root, nil
}

func (g *Generator) GetStateRootForSequence(ctx context.Context, sequence uint64) (*LedgerStateRoot, error) {
	if g.db == nil {
		return nil, nil
	}
	var row storage.StateRoot
	res := g.db.WithContext(ctx).Where("sequence = ?", sequence).Limit(1).Find(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &LedgerStateRoot{Sequence: row.Sequence, StateRoot: StateRoot(row.StateRoot)}, nil
}

// ComputeStateRoot expects depositors ordered by principal, as StateReader.ListDepositors returns them.
func ComputeStateRoot(pool *rewardLedger.PoolState, depositors []*rewardLedger.Depositor) (StateRoot, error) {
	leaves := [][]byte{
		append(MerkleLeafPrefix_Sequence, binary.BigEndian.AppendUint64([]byte{}, pool.Sequence)...),
		append(MerkleLeafPrefix_Pool, encodePool(pool)...),
	}

	if len(depositors) > 0 {
		inputs := make([]*MerkleTreeInput, 0, len(depositors))
		for _, d := range depositors {
			inputs = append(inputs, &MerkleTreeInput{
				SlotID: SlotID(d.Principal),
				Value:  []byte(fmt.Sprintf("%s_%s", d.Balance.String(), d.RewardDebt.String())),
			})
		}
		tree, err := MerkleizeDepositors(inputs)
		if err != nil {
			return "", err
		}
		leaves = append(leaves, append(MerkleLeafPrefix_Depositors, tree.Root()...))
	}

	tree, err := merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
	if err != nil {
		return "", err
	}
	return StateRoot(utils.ConvertBytesToString(tree.Root())), nil
}

func MerkleizeDepositors(inputs []*MerkleTreeInput) (*merkletree.MerkleTree, error) {
	om := orderedmap.New[SlotID, []byte]()

	for _, input := range inputs {
		_, found := om.Get(input.SlotID)
		if found {
			return nil, fmt.Errorf("duplicate slotID %s", input.SlotID)
		}
		om.Set(input.SlotID, input.Value)

		prev := om.GetPair(input.SlotID).Prev()
		if prev != nil && prev.Key > input.SlotID {
			om.Delete(input.SlotID)
			return nil, errors.New("slotIDs are not in order")
		}
	}

	leaves := make([][]byte, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		leaves = append(leaves, encodeMerkleLeaf(pair.Key, pair.Value))
	}
	return merkletree.NewTree(
		merkletree.WithData(leaves),
		merkletree.WithHashType(keccak256.New()),
	)
}

func encodePool(pool *rewardLedger.PoolState) []byte {
	return []byte(fmt.Sprintf("%s_%s_%d", pool.TotalStaked.String(), pool.AccRewardPerShare.String(), pool.DepositorCount))
}

func encodeMerkleLeaf(slotID SlotID, value []byte) []byte {
	return append([]byte(slotID), value...)
}
