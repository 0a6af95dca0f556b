package services

import (
	"context"
	"errors"
	"testing"

	"github.com/t4zn/medicaps-sub001/internal/authz"
	"github.com/t4zn/medicaps-sub001/internal/database/dbtest"
	"github.com/t4zn/medicaps-sub001/internal/models"
)

func voteState(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return *v
}

func TestVoteSameDirectionTwiceRemovesVote(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewVoteService(db)
	ctx := context.Background()
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, user.UserID, true)

	first, err := svc.Toggle(ctx, user.UserID, file.ID, models.VoteUp)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if first.UpVotes != 1 || first.DownVotes != 0 || voteState(first.UserVote) != models.VoteUp {
		t.Fatalf("first Toggle = up %d down %d vote %s, want 1/0/up", first.UpVotes, first.DownVotes, voteState(first.UserVote))
	}

	second, err := svc.Toggle(ctx, user.UserID, file.ID, models.VoteUp)
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if second.UpVotes != 0 || second.DownVotes != 0 || second.UserVote != nil {
		t.Fatalf("second Toggle = up %d down %d vote %s, want 0/0/<nil>", second.UpVotes, second.DownVotes, voteState(second.UserVote))
	}
}

func TestVoteOppositeDirectionUpdatesInPlace(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewVoteService(db)
	ctx := context.Background()
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, user.UserID, true)

	if _, err := svc.Toggle(ctx, user.UserID, file.ID, models.VoteUp); err != nil {
		t.Fatalf("Toggle up: %v", err)
	}
	got, err := svc.Toggle(ctx, user.UserID, file.ID, models.VoteDown)
	if err != nil {
		t.Fatalf("Toggle down: %v", err)
	}
	if got.UpVotes != 0 || got.DownVotes != 1 || voteState(got.UserVote) != models.VoteDown {
		t.Fatalf("Toggle = up %d down %d vote %s, want 0/1/down", got.UpVotes, got.DownVotes, voteState(got.UserVote))
	}

	var rows int64
	db.Model(&models.Vote{}).Where("file_id = ? AND user_id = ?", file.ID, user.UserID).Count(&rows)
	if rows != 1 {
		t.Fatalf("vote rows = %d, want 1", rows)
	}
}

func TestVoteCountsAcrossUsers(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewVoteService(db)
	ctx := context.Background()
	a := createUser(t, db, "a@medicaps.ac.in", authz.RoleUser)
	b := createUser(t, db, "b@medicaps.ac.in", authz.RoleUser)
	c := createUser(t, db, "c@medicaps.ac.in", authz.RoleUser)
	file := createFile(t, db, a.UserID, true)

	for _, v := range []struct {
		id   authz.Identity
		vote string
	}{{a, models.VoteUp}, {b, models.VoteUp}, {c, models.VoteDown}} {
		if _, err := svc.Toggle(ctx, v.id.UserID, file.ID, v.vote); err != nil {
			t.Fatalf("Toggle: %v", err)
		}
	}

	got, err := svc.Counts(ctx, file.ID, c.UserID)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if got.UpVotes != 2 || got.DownVotes != 1 || voteState(got.UserVote) != models.VoteDown {
		t.Fatalf("Counts = up %d down %d vote %s, want 2/1/down", got.UpVotes, got.DownVotes, voteState(got.UserVote))
	}
}

func TestVoteRejectsInvalidInput(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewVoteService(db)
	ctx := context.Background()
	user := createUser(t, db, "u@medicaps.ac.in", authz.RoleUser)
	pending := createFile(t, db, user.UserID, false)

	if _, err := svc.Toggle(ctx, user.UserID, pending.ID, "sideways"); !errors.Is(err, ErrInvalidVoteType) {
		t.Fatalf("Toggle(sideways) = %v, want ErrInvalidVoteType", err)
	}
	if _, err := svc.Toggle(ctx, user.UserID, pending.ID, models.VoteUp); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("Toggle on pending file = %v, want ErrFileNotFound", err)
	}
}
