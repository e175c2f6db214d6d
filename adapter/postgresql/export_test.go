package postgresql

var SelectQuery = selectQuery
