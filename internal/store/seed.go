package store

// seedData is the demo reference data written into an empty file store so a
// fresh install has accounts and schedules to work with. The passwords are
// demo plaintext; real deployments should replace them with bcrypt hashes.
var seedData = map[Collection][]Document{
	Students: {
		{"id": "1", "name": "Ahmad Farizi", "studentId": "S001", "class": "XII IPA 1", "email": "ahmad.farizi@example.com", "password": "123456"},
		{"id": "2", "name": "Diah Purnama", "studentId": "S002", "class": "XII IPA 1", "email": "diah.p@example.com", "password": "123456"},
		{"id": "3", "name": "Budi Santoso", "studentId": "S003", "class": "XII IPS 2", "email": "budi.santoso@example.com", "password": "123456"},
	},
	Teachers: {
		{"id": "1", "name": "Siti Rahayu", "teacherId": "T001", "email": "siti.rahayu@example.com", "subjects": []any{"Matematika", "Fisika"}, "password": "123456"},
		{"id": "2", "name": "Bambang Wijaya", "teacherId": "T002", "email": "bambang.w@example.com", "subjects": []any{"Kimia"}, "password": "123456"},
	},
	Admins: {
		{"id": "1", "name": "Admin Utama", "email": "admin@example.com", "password": "admin123"},
	},
	Users: {
		{"id": "student-1", "email": "ahmad.farizi@example.com", "name": "Ahmad Farizi", "role": "student", "roleId": "1"},
		{"id": "student-2", "email": "diah.p@example.com", "name": "Diah Purnama", "role": "student", "roleId": "2"},
		{"id": "student-3", "email": "budi.santoso@example.com", "name": "Budi Santoso", "role": "student", "roleId": "3"},
		{"id": "teacher-1", "email": "siti.rahayu@example.com", "name": "Siti Rahayu", "role": "teacher", "roleId": "1"},
		{"id": "teacher-2", "email": "bambang.w@example.com", "name": "Bambang Wijaya", "role": "teacher", "roleId": "2"},
		{"id": "admin-1", "email": "admin@example.com", "name": "Admin Utama", "role": "admin", "roleId": "1"},
	},
	Subjects: {
		{"id": "1", "name": "Matematika", "code": "MTK12", "teacherId": "1"},
		{"id": "2", "name": "Fisika", "code": "FIS12", "teacherId": "1"},
		{"id": "3", "name": "Kimia", "code": "KIM12", "teacherId": "2"},
	},
	Schedules: {
		{"id": "1", "subjectId": "1", "teacherId": "1", "class": "XII IPA 1", "dayOfWeek": "Senin", "startTime": "08:00", "endTime": "09:30", "roomNumber": "R101"},
		{"id": "2", "subjectId": "2", "teacherId": "1", "class": "XII IPA 1", "dayOfWeek": "Selasa", "startTime": "10:00", "endTime": "11:30", "roomNumber": "R102"},
	},
	Attendances: {},
}
