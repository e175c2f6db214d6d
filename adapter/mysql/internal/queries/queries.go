package queries

const CreateDatabaseTmpl = "CREATE DATABASE IF NOT EXISTS `%s`"

const CreateTableUsersTmpl = "CREATE TABLE IF NOT EXISTS `%s` (" + `
    user_id VARCHAR(36)   NOT NULL PRIMARY KEY,
    name    VARCHAR(255)  NOT NULL,
    email   VARCHAR(255)  NOT NULL,
    age     DECIMAL(5, 2) NOT NULL,
    UNIQUE (email)
)`

const DropTableTmpl = "DROP TABLE IF EXISTS `%s`"

const CountTmpl = "SELECT COUNT(*) FROM `%s`"

const InsertIgnoreUserTmpl = "INSERT IGNORE INTO `%s` (`user_id`, `name`, `email`, `age`) VALUES (?, ?, ?, ?)"

// MaxLimit is the LIMIT used when only an OFFSET is requested, as MySQL has no OFFSET without LIMIT.
const MaxLimit uint64 = 18446744073709551615
