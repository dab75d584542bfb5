// Copyright 2025 CommunityBig
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

const html_template = `
<!DOCTYPE html>
<html>
<head>
<meta http-equiv="refresh" content="10">
<style>
	table, td, th {
		border: 1px solid;
	}

	table {
		width: 100%;
		border-collapse: collapse;
	}
</style>
</head>
<body>
	<h1>comm-video-converter status</h1><br>
	<h2>Active Jobs</h2>
	Currently running jobs: {{len .ActiveJobs}}
	<table>
		{{range .ActiveJobs}}
		<tr>
			<th style="text-align:left">
				Job ID:
			</th>
			<td>
				{{.Id}}
			</td>
			<th style="text-align:left">
				Status:
			</th>
			<td>
				{{.Status.Status}}
			</td>
		</tr>
		<tr>
			<th style="text-align:left">
				Source:
			</th>
			<td>
				{{.Status.Input}}
			</td>
			<th style="text-align:left">
				Progress:
			</th>
			<td>
				{{.Percent}}% (ETA {{.Status.ETA}})
			</td>
		</tr>
		<tr>
			<td colspan=4>
				{{.Status.LastLine}}
			</td>
		</tr>
		{{end}}
	</table>
	<h2>Recent Jobs</h2>
	<table>
		<tr>
			<th>Job ID</th>
			<th>Source</th>
			<th>Destination</th>
			<th>Outcome</th>
			<th>Original Deleted</th>
			<th>Detail</th>
		</tr>
		{{range .RecentJobs}}
			<tr>
				<td>{{.ID}}</td>
				<td>{{.Input}}</td>
				<td>{{.Output}}</td>
				<td>{{.Outcome}}</td>
				<td>{{.Deleted}}</td>
				<td>{{.Detail}}</td>
			</tr>
		{{end}}
	</table>
</body>
`
