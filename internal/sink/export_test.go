package sink

func SQLiteBusyTimeout(s *SQLite) int {
	var n int
	if err := s.db.QueryRow("pragma busy_timeout").Scan(&n); err != nil {
		return -1
	}
	return n
}
