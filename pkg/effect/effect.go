package effect

import (
	"context"
	"log"
	"strings"

	"sub_trigger_bot/pkg/holder"
	"sub_trigger_bot/pkg/minecraft"

	"github.com/pkg/errors"
)

const (
	MaxTNTPerPlayer = 64
	MaxAnvilHeight  = 200
)

var ErrUnknownVariant = errors.New("unknown effect variant")

// Mapping from an increase to world changes.
type Variant string

const (
	VariantTNT   Variant = "tnt"
	VariantAnvil Variant = "anvil"
)

func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantTNT, VariantAnvil:
		return v, nil
	}
	return "", errors.WithMessagef(ErrUnknownVariant, "%q", s)
}

// Applies effects of a magnitude to the target world.
type Sink interface {
	// Cheap reachability check.
	Ready(ctx context.Context) bool
	Apply(ctx context.Context, delta holder.Delta) error
}

// Target world operations used by the sinks.
type World interface {
	Ready(ctx context.Context) bool
	PlayerEntityIDs(ctx context.Context) ([]int, error)
	TilePos(ctx context.Context, entityID int) (minecraft.Vec3, error)
	SpawnEntity(ctx context.Context, pos minecraft.Vec3, typeID int) error
	SetBlock(ctx context.Context, pos minecraft.Vec3, blockID int) error
}

// Returns sink of the given variant over the world.
func New(world World, variant Variant) (Sink, error) {
	switch variant {
	case VariantTNT:
		return &tntSink{world: world}, nil
	case VariantAnvil:
		return &anvilSink{world: world}, nil
	}
	return nil, errors.WithMessagef(ErrUnknownVariant, "%q", variant)
}

// Invokes fnc with the tile position of each connected player.
// Stops at the first failure, players already served keep their effect.
func forEachPlayer(ctx context.Context, world World, fnc func(pos minecraft.Vec3) error) error {
	players, err := world.PlayerEntityIDs(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to list players")
	}

	for _, player := range players {
		pos, err := world.TilePos(ctx, player)
		if err != nil {
			return errors.Wrapf(err, "failed to locate player %d", player)
		}

		if err := fnc(pos); err != nil {
			return err
		}
	}

	return nil
}

// Spawns delta primed TNT at every player.
type tntSink struct {
	world World
}

func (s *tntSink) Ready(ctx context.Context) bool {
	return s.world.Ready(ctx)
}

func (s *tntSink) Apply(ctx context.Context, delta holder.Delta) error {
	count := int(min(uint64(delta), MaxTNTPerPlayer))
	if uint64(delta) > MaxTNTPerPlayer {
		log.Printf("TNT capped at %d, requested %d\n", MaxTNTPerPlayer, delta)
	}

	return forEachPlayer(ctx, s.world, func(pos minecraft.Vec3) error {
		for i := 0; i < count; i++ {
			if err := s.world.SpawnEntity(ctx, pos, minecraft.EntityPrimedTNT); err != nil {
				return errors.Wrapf(err, "failed to spawn TNT at %s", pos)
			}
		}
		log.Printf("TNT %d spawned at %s\n", count, pos)
		return nil
	})
}

// Places an anvil delta blocks above every player.
type anvilSink struct {
	world World
}

func (s *anvilSink) Ready(ctx context.Context) bool {
	return s.world.Ready(ctx)
}

func (s *anvilSink) Apply(ctx context.Context, delta holder.Delta) error {
	height := int(min(uint64(delta), MaxAnvilHeight))

	return forEachPlayer(ctx, s.world, func(pos minecraft.Vec3) error {
		at := pos.Add(0, height, 0)
		if err := s.world.SetBlock(ctx, at, minecraft.BlockAnvil); err != nil {
			return errors.Wrapf(err, "failed to place anvil at %s", at)
		}
		log.Printf("Anvil placed at %s\n", at)
		return nil
	})
}
