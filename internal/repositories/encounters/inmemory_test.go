package encounters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/tactics-api/internal/errors"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

type InMemoryRepositoryTestSuite struct {
	suite.Suite

	ctx  context.Context
	repo *encounters.InMemoryRepository
}

func (s *InMemoryRepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = encounters.NewInMemory()
}

func (s *InMemoryRepositoryTestSuite) TestSaveAndGet() {
	saved, err := s.repo.Save(s.ctx, &encounters.SaveInput{Snapshot: testSnapshot()})
	s.Require().NoError(err)
	s.False(saved.Snapshot.CreatedAt.IsZero())
	s.False(saved.Snapshot.UpdatedAt.IsZero())

	output, err := s.repo.Get(s.ctx, &encounters.GetInput{EncounterID: "enc_123"})
	s.Require().NoError(err)
	s.Equal("enc_123", output.Snapshot.ID)
	s.Len(output.Snapshot.Combatants, 2)
}

func (s *InMemoryRepositoryTestSuite) TestSaveUpserts() {
	snapshot := testSnapshot()
	first, err := s.repo.Save(s.ctx, &encounters.SaveInput{Snapshot: snapshot})
	s.Require().NoError(err)

	updated := first.Snapshot
	updated.Round = 2
	updated.Status = encounters.StatusComplete

	_, err = s.repo.Save(s.ctx, &encounters.SaveInput{Snapshot: updated})
	s.Require().NoError(err)

	output, err := s.repo.Get(s.ctx, &encounters.GetInput{EncounterID: "enc_123"})
	s.Require().NoError(err)
	s.Equal(2, output.Snapshot.Round)
	s.Equal(encounters.StatusComplete, output.Snapshot.Status)
	s.Equal(first.Snapshot.CreatedAt, output.Snapshot.CreatedAt)
}

func (s *InMemoryRepositoryTestSuite) TestGetUnknownEncounter() {
	output, err := s.repo.Get(s.ctx, &encounters.GetInput{EncounterID: "enc_missing"})
	s.Error(err)
	s.Nil(output)
	s.True(errors.IsNotFound(err))
}

func (s *InMemoryRepositoryTestSuite) TestDelete() {
	_, err := s.repo.Save(s.ctx, &encounters.SaveInput{Snapshot: testSnapshot()})
	s.Require().NoError(err)

	output, err := s.repo.Delete(s.ctx, &encounters.DeleteInput{EncounterID: "enc_123"})
	s.Require().NoError(err)
	s.True(output.Success)

	_, err = s.repo.Delete(s.ctx, &encounters.DeleteInput{EncounterID: "enc_123"})
	s.True(errors.IsNotFound(err))
}

func (s *InMemoryRepositoryTestSuite) TestGetReturnsIsolatedCopy() {
	_, err := s.repo.Save(s.ctx, &encounters.SaveInput{Snapshot: testSnapshot()})
	s.Require().NoError(err)

	first, err := s.repo.Get(s.ctx, &encounters.GetInput{EncounterID: "enc_123"})
	s.Require().NoError(err)

	// Mutating a fetched snapshot must not reach the store.
	first.Snapshot.Combatants[0].HP = 0
	first.Snapshot.Initiative[0].Roll = 1

	second, err := s.repo.Get(s.ctx, &encounters.GetInput{EncounterID: "enc_123"})
	s.Require().NoError(err)
	s.Equal(12, second.Snapshot.Combatants[0].HP)
	s.Equal(17, second.Snapshot.Initiative[0].Roll)
}

func (s *InMemoryRepositoryTestSuite) TestValidation() {
	_, err := s.repo.Save(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Get(s.ctx, &encounters.GetInput{})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.repo.Delete(s.ctx, nil)
	s.True(errors.IsInvalidArgument(err))
}

func TestInMemoryRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(InMemoryRepositoryTestSuite))
}
