package interview

import "github.com/Freeeeeet/interview_scheduler/internal/model"

// SlotOption открытый слот вместе с текущей нагрузкой его учителя
type SlotOption struct {
	Slot        *model.Slot
	TeacherLoad int
}

// PickLeastLoaded выбирает слот учителя с минимальным числом активных бронирований.
// При равной нагрузке побеждает первый вариант в порядке выборки, поэтому
// детерминизм обеспечивается порядком сортировки хранилища (start_time, teacher_id, id).
func PickLeastLoaded(options []SlotOption) (SlotOption, bool) {
	if len(options) == 0 {
		return SlotOption{}, false
	}

	best := options[0]
	for _, opt := range options[1:] {
		if opt.TeacherLoad < best.TeacherLoad {
			best = opt
		}
	}

	return best, true
}
