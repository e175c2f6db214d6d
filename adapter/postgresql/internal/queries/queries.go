package queries

const DatabaseExists = `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`

const CreateDatabaseTmpl = `CREATE DATABASE %s`

const CreateTableUsersTmpl = `CREATE TABLE IF NOT EXISTS %s (
    user_id VARCHAR(36)   NOT NULL PRIMARY KEY,
    name    VARCHAR(255)  NOT NULL,
    email   VARCHAR(255)  NOT NULL UNIQUE,
    age     NUMERIC(5, 2) NOT NULL
)`

const DropTableTmpl = `DROP TABLE IF EXISTS %s`

const CountTmpl = `SELECT COUNT(*) FROM %s`

const InsertUserOnConflictDoNothingTmpl = `INSERT INTO %s (user_id, name, email, age) VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`
