package mysql

var SelectQuery = selectQuery
