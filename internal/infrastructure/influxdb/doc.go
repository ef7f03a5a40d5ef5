// Package influxdb writes inference results to InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API. Points are batched
// according to influxdb.batch_size and influxdb.flush_interval and sent in
// the background; write failures surface through SetOnError.
//
// Every result becomes one point in the "inference" measurement:
//
//	inference,board=esp32dev,model=sine iteration=7i,microseconds=3i,result=0.64
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteResult("esp32dev", "sine", 0.64, 7, 3, time.Now())
package influxdb
