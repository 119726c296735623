package utils

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/viewpoint/logging"
)

func TestGroupWorkParallel(t *testing.T) {
	for _, tc := range []struct {
		name      string
		total     int
		numGroups int
	}{
		{"even split", 12, 4},
		{"uneven split", 10, 3},
		{"more groups than work", 2, 8},
		{"default groups", 37, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var mu sync.Mutex
			seen := map[int]int{}
			err := GroupWorkParallel(context.Background(), tc.total, tc.numGroups,
				func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
					return func(memberNum, workNum int) error {
						mu.Lock()
						seen[workNum]++
						mu.Unlock()
						return nil
					}, nil
				})
			test.That(t, err, test.ShouldBeNil)
			test.That(t, len(seen), test.ShouldEqual, tc.total)
			for i := 0; i < tc.total; i++ {
				test.That(t, seen[i], test.ShouldEqual, 1)
			}
		})
	}

	t.Run("empty", func(t *testing.T) {
		err := GroupWorkParallel(context.Background(), 0, 4, nil)
		test.That(t, err, test.ShouldBeNil)
	})

	t.Run("error stops work", func(t *testing.T) {
		err := GroupWorkParallel(context.Background(), 8, 2,
			func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
				return func(memberNum, workNum int) error {
					if workNum == 5 {
						return errors.New("bad")
					}
					return nil
				}, nil
			})
		test.That(t, err, test.ShouldBeError, errors.New("bad"))
	})

	t.Run("panic is captured", func(t *testing.T) {
		err := GroupWorkParallel(context.Background(), 4, 2,
			func(groupNum, groupSize, from, to int) (MemberWorkFunc, GroupWorkDoneFunc) {
				return func(memberNum, workNum int) error {
					panic(1)
				}, nil
			})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "got panic")
	})
}

func TestTimer(t *testing.T) {
	mock := clock.NewMock()
	timer := NewTimer(mock)
	mock.Add(1500 * time.Millisecond)
	test.That(t, timer.Elapsed(), test.ShouldEqual, 1500*time.Millisecond)

	logger, logs := logging.NewObservedTestLogger(t)
	elapsed := timer.LogTiming(logger, "Augmenting tree")
	test.That(t, elapsed, test.ShouldEqual, 1500*time.Millisecond)
	test.That(t, timer.Elapsed(), test.ShouldEqual, time.Duration(0))
	test.That(t, logs.FilterMessage("Augmenting tree").Len(), test.ShouldEqual, 1)
}
