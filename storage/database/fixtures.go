package database

import (
	"github.com/trezcool/shule/core/resource"
	"github.com/trezcool/shule/core/user"
)

var fixtureUsers = []resource.Fields{
	{"id": 1, "fullName": "Principal Anderson", "email": "admin@school.com", "role": user.RoleAdmin},
	{"id": 2, "fullName": "Ms. Jennifer Honey", "email": "teacher@school.com", "role": user.RoleTeacher, "specialization": "Mathematics"},
	{"id": 3, "fullName": "Matilda Wormwood", "email": "student@school.com", "role": user.RoleStudent, "classId": 1, "rollNumber": "5A-001"},
	{"id": 4, "fullName": "Harry Potter", "email": "harry@school.com", "role": user.RoleStudent, "classId": 1, "rollNumber": "5A-002"},
	{"id": 5, "fullName": "Hermione Granger", "email": "hermione@school.com", "role": user.RoleStudent, "classId": 1, "rollNumber": "5A-003"},
	{"id": 6, "fullName": "Ron Weasley", "email": "ron@school.com", "role": user.RoleStudent, "classId": 1, "rollNumber": "5A-004"},
}

var fixtureClasses = []resource.Fields{
	{"id": 1, "name": "Grade 5A", "teacherId": 2, "room": "101", "schedule": "Mon-Fri 08:00 - 14:00"},
	{"id": 2, "name": "Grade 6B", "teacherId": 2, "room": "102", "schedule": "Mon-Fri 08:00 - 14:00"},
	{"id": 3, "name": "Science Club", "teacherId": 2, "room": "Lab A", "schedule": "Wed 15:00 - 16:30"},
}

var fixtureAttendance = []resource.Fields{
	{"id": 1, "studentId": 3, "classId": 1, "date": "2023-10-25", "status": "present"},
	{"id": 2, "studentId": 4, "classId": 1, "date": "2023-10-25", "status": "absent"},
	{"id": 3, "studentId": 5, "classId": 1, "date": "2023-10-25", "status": "present"},
}

var fixtureResults = []resource.Fields{
	{"id": 1, "studentId": 3, "subject": "Mathematics", "score": 98, "totalMarks": 100, "grade": "A+"},
	{"id": 2, "studentId": 3, "subject": "Science", "score": 95, "totalMarks": 100, "grade": "A"},
	{"id": 3, "studentId": 4, "subject": "Mathematics", "score": 72, "totalMarks": 100, "grade": "B"},
}

// Fixtures returns fresh copies of the dashboard's starting collections.
// students and teachers are the matching subsets of users.
func Fixtures() map[string][]resource.Record {
	return map[string][]resource.Record{
		resource.Users:      toRecords(fixtureUsers, nil),
		resource.Students:   toRecords(fixtureUsers, hasRole(user.RoleStudent)),
		resource.Teachers:   toRecords(fixtureUsers, hasRole(user.RoleTeacher)),
		resource.Classes:    toRecords(fixtureClasses, nil),
		resource.Attendance: toRecords(fixtureAttendance, nil),
		resource.Results:    toRecords(fixtureResults, nil),
	}
}

func hasRole(role string) func(resource.Fields) bool {
	return func(f resource.Fields) bool { return f["role"] == role }
}

func toRecords(rows []resource.Fields, keep func(resource.Fields) bool) []resource.Record {
	records := make([]resource.Record, 0, len(rows))
	for _, row := range rows {
		if keep != nil && !keep(row) {
			continue
		}
		fields := row.Clone()
		id := fields[resource.IDField].(int)
		delete(fields, resource.IDField)
		records = append(records, resource.Record{ID: int64(id), Fields: fields})
	}
	return records
}
