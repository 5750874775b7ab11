package catalog

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      device_type,
                      channels,
                      sample_rate,
                      center_freq,
                      config)
VALUES (?, ?, ?, ?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       device_type,
       channels,
       sample_rate,
       center_freq,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       device_type,
       channels,
       sample_rate,
       center_freq,
       config
FROM sessions
ORDER BY start_time`

	insertBurstSQL = `
INSERT INTO bursts (session_id,
                    seq,
                    timestamp,
                    elapsed_ns,
                    input_level,
                    strategy)
VALUES (?, ?, ?, ?, ?, ?)`

	insertChannelPowerSQL = `
INSERT INTO channel_power (burst_id,
                           channel,
                           power)
VALUES `

	selectPowerSQL = `
SELECT b.seq,
       b.timestamp,
       p.channel,
       p.power
FROM bursts b
         JOIN channel_power p ON p.burst_id = b.id
WHERE b.session_id = ?
ORDER BY b.seq, p.channel`
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string
