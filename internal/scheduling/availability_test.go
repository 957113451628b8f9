package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testDay = "2024-06-10"

type availabilityFixture struct {
	repo      *fakeRepository
	avail     *Availability
	patientID uuid.UUID
	doctorID  uuid.UUID
	roomID    uuid.UUID
	procID    uuid.UUID
}

func newAvailabilityFixture() *availabilityFixture {
	repo := newFakeRepository()
	return &availabilityFixture{
		repo:      repo,
		avail:     NewAvailability(repo, testConfig()),
		patientID: repo.addPatient(),
		doctorID:  repo.addDoctor(),
		roomID:    repo.addRoom(),
		procID:    repo.addProcedure(),
	}
}

func (fx *availabilityFixture) occupy(day, timeOfDay, status string) uuid.UUID {
	return fx.repo.addAppointment(fx.patientID, fx.doctorID, fx.procID, fx.roomID, day, timeOfDay, status)
}

func TestBusySlotsSkipsCancelledAndDenied(t *testing.T) {
	fx := newAvailabilityFixture()
	fx.occupy(testDay, "09:00", "Cancelled")
	fx.occupy(testDay, "09:30", "canceled")
	fx.occupy(testDay, "10:00", " DENIED ")
	fx.occupy(testDay, "10:30", "declined")
	fx.occupy(testDay, "11:00", StatusScheduled)
	fx.occupy(testDay, "11:30", "some-future-status")

	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, nil)

	assert.NoError(t, err)
	assert.Equal(t, []string{"11:00", "11:30"}, busy)
}

func TestBusySlotsDedupsAndSorts(t *testing.T) {
	fx := newAvailabilityFixture()
	otherRoom := fx.repo.addRoom()
	fx.occupy(testDay, "14:00", StatusScheduled)
	// Same time again, this one holding the doctor in another room.
	fx.repo.addAppointment(fx.patientID, fx.doctorID, fx.procID, otherRoom, testDay, "14:00", StatusConfirmed)
	fx.occupy(testDay, "09:00", StatusScheduled)

	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, nil)

	assert.NoError(t, err)
	assert.Equal(t, []string{"09:00", "14:00"}, busy)
}

func TestBusySlotsUnionOfDoctorAndRoom(t *testing.T) {
	fx := newAvailabilityFixture()
	otherDoctor := fx.repo.addDoctor()
	otherRoom := fx.repo.addRoom()

	// Doctor busy elsewhere, room busy with another doctor.
	fx.repo.addAppointment(fx.patientID, fx.doctorID, fx.procID, otherRoom, testDay, "09:00", StatusScheduled)
	fx.repo.addAppointment(fx.patientID, otherDoctor, fx.procID, fx.roomID, testDay, "10:00", StatusScheduled)
	// Neither resource involved.
	fx.repo.addAppointment(fx.patientID, otherDoctor, fx.procID, otherRoom, testDay, "11:00", StatusScheduled)

	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, nil)

	assert.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, busy)
}

func TestBusySlotsSingleFilterAndNone(t *testing.T) {
	fx := newAvailabilityFixture()
	otherDoctor := fx.repo.addDoctor()
	fx.occupy(testDay, "09:00", StatusScheduled)
	fx.repo.addAppointment(fx.patientID, otherDoctor, fx.procID, fx.roomID, "2024-06-11", "10:00", StatusScheduled)

	byDoctor, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, byDoctor)

	all, err := fx.avail.BusySlots(context.Background(), testDay, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, all)
}

func TestBusySlotsExcludesAppointment(t *testing.T) {
	fx := newAvailabilityFixture()
	apptID := fx.occupy(testDay, "09:00", StatusScheduled)

	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, &apptID)

	assert.NoError(t, err)
	assert.Empty(t, busy)
}

func TestAvailableSlotsExcludesBookedTime(t *testing.T) {
	fx := newAvailabilityFixture()
	fx.occupy(testDay, "09:00", StatusScheduled)

	free, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, testDay, 30, nil)

	assert.NoError(t, err)
	assert.NotContains(t, free, "09:00")
	assert.Contains(t, free, "08:00")
	assert.Contains(t, free, "08:30")
	assert.Contains(t, free, "09:30")
	assert.Contains(t, free, "17:00")
	// 19 candidates from 08:00 to 17:00 at 30 minutes, one taken.
	assert.Len(t, free, 18)
}

func TestAvailableSlotsPartitionTheGrid(t *testing.T) {
	fx := newAvailabilityFixture()
	fx.occupy(testDay, "08:00", StatusScheduled)
	fx.occupy(testDay, "12:30", StatusConfirmed)
	fx.occupy(testDay, "17:00", StatusPending)
	fx.occupy(testDay, "13:00", StatusCancelled)

	free, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, testDay, 30, nil)
	assert.NoError(t, err)
	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, nil)
	assert.NoError(t, err)

	seen := make(map[string]bool)
	for _, s := range free {
		seen[s] = true
	}
	for _, s := range busy {
		assert.False(t, seen[s], "slot %s is both free and busy", s)
		seen[s] = true
	}
	assert.Len(t, seen, 19)
}

func TestAvailableSlotsStepNotDividingWindow(t *testing.T) {
	fx := newAvailabilityFixture()

	free, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, testDay, 50, nil)

	assert.NoError(t, err)
	// 08:00 + n*50min while <= 17:00: the last candidate is 16:20.
	assert.Equal(t, "08:00", free[0])
	assert.Equal(t, "16:20", free[len(free)-1])
	assert.Len(t, free, 11)
}

func TestAvailableSlotsDefaultStep(t *testing.T) {
	fx := newAvailabilityFixture()

	free, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, testDay, 0, nil)

	assert.NoError(t, err)
	assert.Len(t, free, 19)
}

func TestAvailableSlotsInvalidDay(t *testing.T) {
	fx := newAvailabilityFixture()

	_, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, "junk", 30, nil)

	assert.Error(t, err)
}

func TestIsSlotAvailableComplementsBusySlots(t *testing.T) {
	fx := newAvailabilityFixture()
	fx.occupy(testDay, "09:00", StatusScheduled)
	fx.occupy(testDay, "15:30", "cancelled")

	busy, err := fx.avail.BusySlots(context.Background(), testDay, &fx.doctorID, &fx.roomID, nil)
	assert.NoError(t, err)

	for _, slot := range []string{"08:00", "09:00", "15:30", "16:00"} {
		free, err := fx.avail.IsSlotAvailable(context.Background(), testDay, slot, &fx.doctorID, &fx.roomID, nil)
		assert.NoError(t, err)

		inBusy := false
		for _, b := range busy {
			if b == slot {
				inBusy = true
			}
		}
		assert.Equal(t, !inBusy, free, "slot %s", slot)
	}
}

func TestSuggestNextSlotReturnsStartWhenFree(t *testing.T) {
	fx := newAvailabilityFixture()

	day, tod, err := fx.avail.SuggestNextSlot(context.Background(), testDay, "09:00", fx.doctorID, fx.roomID, 30)

	assert.NoError(t, err)
	assert.Equal(t, testDay, day)
	assert.Equal(t, "09:00", tod)
}

func TestSuggestNextSlotSkipsBusySlot(t *testing.T) {
	fx := newAvailabilityFixture()
	fx.occupy(testDay, "09:00", StatusScheduled)

	day, tod, err := fx.avail.SuggestNextSlot(context.Background(), testDay, "09:00", fx.doctorID, fx.roomID, 30)

	assert.NoError(t, err)
	assert.Equal(t, testDay, day)
	assert.Equal(t, "09:30", tod)
}

func TestSuggestNextSlotRollsOverToNextDay(t *testing.T) {
	fx := newAvailabilityFixture()
	grid, err := fx.avail.AvailableSlots(context.Background(), fx.doctorID, fx.roomID, testDay, 30, nil)
	assert.NoError(t, err)
	for _, slot := range grid {
		fx.occupy(testDay, slot, StatusScheduled)
	}

	day, tod, err := fx.avail.SuggestNextSlot(context.Background(), testDay, "16:30", fx.doctorID, fx.roomID, 30)

	assert.NoError(t, err)
	assert.Equal(t, "2024-06-11", day)
	assert.Equal(t, "08:00", tod)
}

func TestSuggestNextSlotUnparseableStart(t *testing.T) {
	fx := newAvailabilityFixture()

	_, _, err := fx.avail.SuggestNextSlot(context.Background(), "not-a-day", "junk", fx.doctorID, fx.roomID, 30)

	assert.True(t, errors.Is(err, ErrNoSlotAvailable))
}

func TestSuggestNextSlotHorizonExhausted(t *testing.T) {
	repo := newFakeRepository()
	cfg := testConfig()
	cfg.SuggestHorizonDays = 1
	avail := NewAvailability(repo, cfg)

	patientID := repo.addPatient()
	doctorID := repo.addDoctor()
	roomID := repo.addRoom()
	procID := repo.addProcedure()

	// One horizon day at 30 minutes is 48 candidates, which reach into the
	// third calendar day; book all three days solid.
	for _, day := range []string{"2024-06-10", "2024-06-11", "2024-06-12"} {
		grid, err := avail.AvailableSlots(context.Background(), doctorID, roomID, day, 30, nil)
		assert.NoError(t, err)
		for _, slot := range grid {
			repo.addAppointment(patientID, doctorID, procID, roomID, day, slot, StatusScheduled)
		}
	}

	_, _, err := avail.SuggestNextSlot(context.Background(), "2024-06-10", "08:00", doctorID, roomID, 30)

	assert.True(t, errors.Is(err, ErrNoSlotAvailable))
}
